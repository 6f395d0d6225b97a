package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/models"
	"creatorx/internal/services"
)

// TradeHandler handles order execution against issuers.
type TradeHandler struct {
	tradeService services.TradeServicer
	auditService services.AuditServicer
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeService services.TradeServicer, auditService services.AuditServicer) *TradeHandler {
	return &TradeHandler{tradeService: tradeService, auditService: auditService}
}

// OrderRequest represents a buy or sell order. Quantity is validated by the
// trade service so that non-positive values report INVALID_QUANTITY.
type OrderRequest struct {
	Quantity int64 `json:"quantity"`
}

// BuyShares handles a primary purchase from the issuer.
// @Summary     Buy shares
// @Description Buy shares of a stock from its issuer at the current price
// @Tags        trades
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string       true "Stock ID"
// @Param       request body OrderRequest true "Order"
// @Success     201 {object} services.BuyResult "Trade executed"
// @Failure     400 {object} ErrorResponse "Invalid quantity, self trade or insufficient balance"
// @Failure     404 {object} ErrorResponse "Stock not found"
// @Failure     409 {object} ErrorResponse "Offering exhausted"
// @Router      /stocks/{id}/buy [post]
func (h *TradeHandler) BuyShares(c *gin.Context) {
	userID, stockID, req, ok := h.bindOrder(c)
	if !ok {
		return
	}

	result, err := h.tradeService.BuyShares(c.Request.Context(), userID, stockID, req.Quantity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditActionBuyShares, "trade", result.Trade.ID, c.ClientIP(),
		map[string]interface{}{
			"stock_id": stockID,
			"quantity": req.Quantity,
			"price":    result.Trade.PricePerShare,
		})

	c.JSON(http.StatusCreated, result)
}

// SellShares handles selling shares back to the issuer.
// @Summary     Sell shares
// @Description Sell shares of a stock back to its issuer at the current price
// @Tags        trades
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string       true "Stock ID"
// @Param       request body OrderRequest true "Order"
// @Success     201 {object} services.SellResult "Trade executed"
// @Failure     400 {object} ErrorResponse "Invalid quantity, self trade or insufficient shares"
// @Failure     404 {object} ErrorResponse "Stock or holding not found"
// @Router      /stocks/{id}/sell [post]
func (h *TradeHandler) SellShares(c *gin.Context) {
	userID, stockID, req, ok := h.bindOrder(c)
	if !ok {
		return
	}

	result, err := h.tradeService.SellShares(c.Request.Context(), userID, stockID, req.Quantity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditActionSellShares, "trade", result.Trade.ID, c.ClientIP(),
		map[string]interface{}{
			"stock_id": stockID,
			"quantity": req.Quantity,
			"price":    result.Trade.PricePerShare,
		})

	c.JSON(http.StatusCreated, result)
}

func (h *TradeHandler) bindOrder(c *gin.Context) (userID, stockID string, req OrderRequest, ok bool) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return "", "", req, false
	}
	stockID, err = parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return "", "", req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return "", "", req, false
	}
	return userID, stockID, req, true
}

// GetHoldings lists the caller's positions.
// @Summary     List holdings
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]models.Holding "Holdings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /holdings [get]
func (h *TradeHandler) GetHoldings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	holdings, err := h.tradeService.GetHoldings(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"holdings": holdings})
}
