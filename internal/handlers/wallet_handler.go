package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"creatorx/internal/pagination"
	"creatorx/internal/services"
)

// WalletHandler exposes the caller's balance, ledger and dividend income.
type WalletHandler struct {
	ledgerService   services.LedgerServicer
	dividendService services.DividendServicer
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerService services.LedgerServicer, dividendService services.DividendServicer) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService, dividendService: dividendService}
}

// GetWallet returns the caller's wallet.
// @Summary     Get wallet
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Wallet "Wallet"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.ledgerService.GetWallet(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// GetEntries lists the caller's wallet movements.
// @Summary     Wallet history
// @Description Get the caller's ledger entries, newest first
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.LedgerEntry] "Paginated entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /wallet/entries [get]
func (h *WalletHandler) GetEntries(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := bindPage(c, &page); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.ledgerService.History(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDividends lists dividends paid to the caller.
// @Summary     Dividends received
// @Description Get dividend payouts received by the caller, newest first
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.DividendPayout] "Paginated payouts"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /dividends [get]
func (h *WalletHandler) GetDividends(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := bindPage(c, &page); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.dividendService.ListDividendsReceived(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
