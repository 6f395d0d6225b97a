package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/models"
	"creatorx/internal/services"
)

// PipelineHandler serves machine collaborators: the reward pipeline, the
// payment gateway and the social feed ingest. Routes sit behind the
// pipeline API key.
type PipelineHandler struct {
	earningsService   services.EarningsServicer
	dividendService   services.DividendServicer
	ledgerService     services.LedgerServicer
	engagementService services.EngagementServicer
	pricingService    services.PricingServicer
	auditService      services.AuditServicer
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(
	earningsService services.EarningsServicer,
	dividendService services.DividendServicer,
	ledgerService services.LedgerServicer,
	engagementService services.EngagementServicer,
	pricingService services.PricingServicer,
	auditService services.AuditServicer,
) *PipelineHandler {
	return &PipelineHandler{
		earningsService:   earningsService,
		dividendService:   dividendService,
		ledgerService:     ledgerService,
		engagementService: engagementService,
		pricingService:    pricingService,
		auditService:      auditService,
	}
}

// AwardEarningsRequest credits a creator and triggers dividends.
type AwardEarningsRequest struct {
	CreatorID string `json:"creator_id" binding:"required,uuid"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	SourceTag string `json:"source_tag" binding:"required,source_tag"`
}

// DepositRequest credits purchased currency to a wallet.
type DepositRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reference string `json:"reference" binding:"max=100"`
}

// PostMetricEntry is one post's engagement counters.
type PostMetricEntry struct {
	PostID      string     `json:"post_id" binding:"required,max=100"`
	AuthorID    string     `json:"author_id" binding:"required,uuid"`
	Likes       int64      `json:"likes" binding:"gte=0"`
	Comments    int64      `json:"comments" binding:"gte=0"`
	Shares      int64      `json:"shares" binding:"gte=0"`
	PublishedAt *time.Time `json:"published_at"`
}

// RecordPostMetricsRequest represents a batch of engagement counters.
type RecordPostMetricsRequest struct {
	Metrics []PostMetricEntry `json:"metrics" binding:"required,min=1,max=500,dive"`
}

// RepriceRequest limits a reprice run to one issuer when IssuerID is set.
type RepriceRequest struct {
	IssuerID string `json:"issuer_id" binding:"omitempty,uuid"`
}

// AwardEarnings handles creator earnings from the reward pipeline.
// @Summary     Award creator earnings
// @Description Credit a creator and schedule the dividend distribution to shareholders (pipeline endpoint)
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body AwardEarningsRequest true "Earnings"
// @Success     201 {object} models.EarningEvent "Earning event recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/earnings [post]
func (h *PipelineHandler) AwardEarnings(c *gin.Context) {
	var req AwardEarningsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	event, err := h.earningsService.AwardCreatorEarnings(c.Request.Context(), req.CreatorID, req.Amount, req.SourceTag)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("", models.AuditActionAwardEarnings, "earning_event", event.ID, c.ClientIP(),
		map[string]interface{}{
			"creator_id": req.CreatorID,
			"amount":     req.Amount,
			"source_tag": req.SourceTag,
			"pool":       event.Pool,
		})

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// GetEarningEvent returns an earning event with its payouts.
// @Summary     Get earning event
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Earning event ID"
// @Success     200 {object} models.EarningEvent "Earning event"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Earning event not found"
// @Router      /pipeline/earnings/{id} [get]
func (h *PipelineHandler) GetEarningEvent(c *gin.Context) {
	eventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	event, err := h.earningsService.GetEarningEvent(c.Request.Context(), eventID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// RetryDistribution pays whatever is still pending on an earning event.
// @Summary     Retry dividend distribution
// @Description Pay the pending payouts of an earning event. Paid payouts are never paid twice.
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Earning event ID"
// @Success     200 {object} services.DistributionResult "Distribution result"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Earning event not found"
// @Router      /pipeline/earnings/{id}/distribute [post]
func (h *PipelineHandler) RetryDistribution(c *gin.Context) {
	eventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.dividendService.Distribute(c.Request.Context(), eventID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("", models.AuditActionDistributeDividends, "earning_event", eventID, c.ClientIP(),
		map[string]interface{}{"paid": result.Paid, "status": string(result.Status)})

	c.JSON(http.StatusOK, gin.H{"distribution": result})
}

// Deposit credits a wallet after a confirmed payment.
// @Summary     Deposit
// @Description Credit purchased currency to a user's wallet (payment gateway endpoint)
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body DepositRequest true "Deposit"
// @Success     201 {object} models.LedgerEntry "Ledger entry"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/deposits [post]
func (h *PipelineHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entry, err := h.ledgerService.Deposit(c.Request.Context(), req.UserID, req.Amount, req.Reference)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(req.UserID, models.AuditActionDeposit, "ledger_entry", entry.ID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount, "reference": req.Reference})

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// RecordPostMetrics ingests engagement counters from the social feed.
// @Summary     Record post metrics
// @Description Upsert per-post engagement counters and schedule repricing of the authors (feed endpoint)
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body RecordPostMetricsRequest true "Metrics"
// @Success     200 {object} map[string]int "Number of posts recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/post-metrics [post]
func (h *PipelineHandler) RecordPostMetrics(c *gin.Context) {
	var req RecordPostMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	inputs := make([]services.PostMetricInput, len(req.Metrics))
	for i, m := range req.Metrics {
		inputs[i] = services.PostMetricInput{
			PostID:   m.PostID,
			AuthorID: m.AuthorID,
			Likes:    m.Likes,
			Comments: m.Comments,
			Shares:   m.Shares,
		}
		if m.PublishedAt != nil {
			inputs[i].PublishedAt = *m.PublishedAt
		}
	}

	n, err := h.engagementService.RecordPostMetrics(c.Request.Context(), inputs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recorded": n})
}

// Reprice recomputes one issuer's price, or every price when no issuer is given.
// @Summary     Reprice
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body RepriceRequest false "Optional issuer"
// @Success     200 {object} services.RepriceResult "Reprice summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Stock not found"
// @Router      /pipeline/reprice [post]
func (h *PipelineHandler) Reprice(c *gin.Context) {
	var req RepriceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	if req.IssuerID != "" {
		change, err := h.pricingService.RecomputePrice(c.Request.Context(), req.IssuerID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"price": change})
		return
	}

	result, err := h.pricingService.RecomputeAll(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reprice": result})
}
