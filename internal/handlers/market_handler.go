package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"creatorx/internal/market"
	"creatorx/internal/services"
)

// MarketHandler serves the static market tables and trust lookups.
type MarketHandler struct {
	stockService services.StockServicer
	params       market.Params
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(stockService services.StockServicer, params market.Params) *MarketHandler {
	return &MarketHandler{stockService: stockService, params: params}
}

// MarketTablesResponse lists the capacity tiers, the trust bands and the
// active pricing parameters.
type MarketTablesResponse struct {
	Tiers   []market.TierSpec   `json:"tiers"`
	Trust   []market.TrustLevel `json:"trust"`
	Pricing market.Params       `json:"pricing"`
}

// GetTables returns the tier and trust tables.
// @Summary     Market tables
// @Tags        market
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} MarketTablesResponse "Tier, trust and pricing tables"
// @Router      /market/tiers [get]
func (h *MarketHandler) GetTables(c *gin.Context) {
	c.JSON(http.StatusOK, MarketTablesResponse{
		Tiers:   market.Tiers(),
		Trust:   market.TrustLevels(),
		Pricing: h.params,
	})
}

// GetTrustLevel returns a user's trust band.
// @Summary     Trust level
// @Description Get a user's trust band, derived from their stock's market cap
// @Tags        market
// @Produce     json
// @Security    BearerAuth
// @Param       userID path string true "User ID"
// @Success     200 {object} services.TrustInfo "Trust level"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Router      /market/trust/{userID} [get]
func (h *MarketHandler) GetTrustLevel(c *gin.Context) {
	userID, err := parsePathID(c, "userID")
	if err != nil {
		respondWithError(c, err)
		return
	}

	info, err := h.stockService.GetTrustLevel(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trust": info})
}
