package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/market"
	"creatorx/internal/models"
	"creatorx/internal/pagination"
	"creatorx/internal/services"
)

// StockHandler handles the stock registry endpoints.
type StockHandler struct {
	stockService services.StockServicer
	auditService services.AuditServicer
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(stockService services.StockServicer, auditService services.AuditServicer) *StockHandler {
	return &StockHandler{stockService: stockService, auditService: auditService}
}

// IssueStockRequest represents the request payload for issuing a stock.
// Quantities are whole shares, prices are in minor units.
type IssueStockRequest struct {
	InitialPrice    int64   `json:"initial_price" binding:"required,gt=0"`
	TotalShares     int64   `json:"total_shares" binding:"required,gt=0"`
	InitialOffering int64   `json:"initial_offering" binding:"gte=0"`
	DividendRate    float64 `json:"dividend_rate" binding:"gte=0,lte=1"`
}

// ListStocksQuery filters the stock listing.
type ListStocksQuery struct {
	pagination.PageRequest
	Tier string `form:"tier" binding:"omitempty,stock_tier"`
}

// ListTradesQuery filters a stock's trade history.
type ListTradesQuery struct {
	pagination.PageRequest
	Side string `form:"side" binding:"omitempty,trade_side"`
}

// IssueStock handles issuing (or reissuing) the caller's stock.
// @Summary     Issue stock
// @Description Issue the authenticated creator's stock. Reissuing is allowed once the previous offering is sold out.
// @Tags        stocks
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body IssueStockRequest true "Issuance terms"
// @Success     201 {object} models.Stock "Stock issued"
// @Failure     400 {object} ErrorResponse "Invalid input or tier cap exceeded"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Live offering already exists"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /stocks [post]
func (h *StockHandler) IssueStock(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req IssueStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stock, err := h.stockService.IssueStock(c.Request.Context(), userID,
		req.InitialPrice, req.TotalShares, req.InitialOffering, req.DividendRate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditActionIssueStock, "stock", stock.ID, c.ClientIP(),
		map[string]interface{}{
			"initial_price":    req.InitialPrice,
			"total_shares":     req.TotalShares,
			"initial_offering": req.InitialOffering,
			"issue_count":      stock.IssueCount,
		})

	c.JSON(http.StatusCreated, gin.H{"stock": stock})
}

// ListStocks handles listing stocks by market cap.
// @Summary     List stocks
// @Description Get stocks ordered by market cap, largest first
// @Tags        stocks
// @Produce     json
// @Security    BearerAuth
// @Param       tier      query string false "Only stocks of this tier"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Stock] "Paginated stocks"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /stocks [get]
func (h *StockHandler) ListStocks(c *gin.Context) {
	var q ListStocksQuery
	if err := bindPage(c, &q); err != nil {
		respondWithError(c, err)
		return
	}

	var tier market.Tier
	if q.Tier != "" {
		tier, _ = market.ParseTier(q.Tier)
	}

	result, err := h.stockService.ListStocks(c.Request.Context(), tier, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStock handles fetching a stock by ID.
// @Summary     Get stock
// @Tags        stocks
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Stock ID"
// @Success     200 {object} models.Stock "Stock"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Stock not found"
// @Router      /stocks/{id} [get]
func (h *StockHandler) GetStock(c *gin.Context) {
	stockID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	stock, err := h.stockService.GetStock(c.Request.Context(), stockID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

// GetMyStock returns the caller's own stock.
// @Summary     Get own stock
// @Tags        stocks
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Stock "Stock"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No stock issued"
// @Router      /profile/stock [get]
func (h *StockHandler) GetMyStock(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stock, err := h.stockService.GetStockByIssuer(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

// GetTrades handles listing a stock's trades.
// @Summary     List trades
// @Description Get a stock's trades, newest first
// @Tags        stocks
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Stock ID"
// @Param       side      query string false "buy or sell"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Trade] "Paginated trades"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Stock not found"
// @Router      /stocks/{id}/trades [get]
func (h *StockHandler) GetTrades(c *gin.Context) {
	stockID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q ListTradesQuery
	if err := bindPage(c, &q); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.stockService.GetTrades(c.Request.Context(), stockID, models.TradeSide(q.Side), q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPriceHistory handles listing a stock's price history.
// @Summary     Price history
// @Description Get a stock's recorded prices, newest first
// @Tags        stocks
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Stock ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.StockPrice] "Paginated prices"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Stock not found"
// @Router      /stocks/{id}/prices [get]
func (h *StockHandler) GetPriceHistory(c *gin.Context) {
	stockID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := bindPage(c, &page); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.stockService.GetPriceHistory(c.Request.Context(), stockID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTierProgress reports whether a stock can move to its next tier.
// @Summary     Tier progress
// @Tags        stocks
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Stock ID"
// @Success     200 {object} market.UpgradeCheck "Upgrade check"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Stock not found"
// @Router      /stocks/{id}/tier [get]
func (h *StockHandler) GetTierProgress(c *gin.Context) {
	stockID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	check, err := h.stockService.GetTierProgress(c.Request.Context(), stockID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tier_progress": check})
}

// UpgradeTier promotes the caller's stock to its next tier.
// @Summary     Upgrade tier
// @Description Move the authenticated creator's stock to the next tier when its thresholds are met
// @Tags        stocks
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Stock "Upgraded stock"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No stock issued"
// @Failure     409 {object} ErrorResponse "Thresholds not met"
// @Router      /stocks/tier-upgrade [post]
func (h *StockHandler) UpgradeTier(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stock, err := h.stockService.UpgradeTier(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditActionUpgradeTier, "stock", stock.ID, c.ClientIP(),
		map[string]interface{}{"tier": string(stock.Tier)})

	c.JSON(http.StatusOK, gin.H{"stock": stock})
}
