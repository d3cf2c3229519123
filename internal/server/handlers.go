package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transaction-orchestrator/internal/apperr"
	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/ledger"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
)

// TransactionService is the orchestrator as seen by the HTTP layer.
type TransactionService interface {
	PostTransaction(ctx context.Context, req ledger.TransferRequest) (models.Transaction, error)
	ListTransactions(ctx context.Context, filter interfaces.TransactionFilter) ([]models.Transaction, error)
}

// Handler exposes the transaction API.
type Handler struct {
	service      TransactionService
	dependencies []Dependency
	logger       zerolog.Logger
}

func NewHandler(service TransactionService, logger zerolog.Logger, dependencies ...Dependency) *Handler {
	return &Handler{
		service:      service,
		dependencies: dependencies,
		logger:       logger,
	}
}

type createTransactionRequest struct {
	FromAccountNumber string          `json:"fromAccountNumber"`
	ToAccountNumber   string          `json:"toAccountNumber"`
	Amount            decimal.Decimal `json:"amount"`
	Type              string          `json:"type"`
	Description       string          `json:"description"`
	Currency          string          `json:"currency"`
}

type errorResponse struct {
	Error         string      `json:"error"`
	Code          apperr.Code `json:"code"`
	Details       any         `json:"details,omitempty"`
	TransactionID string      `json:"transactionId,omitempty"`
}

func (h *Handler) createTransaction(c *gin.Context) {
	var body createTransactionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, apperr.Validation("Invalid request body").WithDetails(err.Error()))
		return
	}

	who := identityFrom(c)
	tx, err := h.service.PostTransaction(c.Request.Context(), ledger.TransferRequest{
		FromAccount: body.FromAccountNumber,
		ToAccount:   body.ToAccountNumber,
		Amount:      body.Amount,
		Currency:    body.Currency,
		Type:        models.Type(body.Type),
		Description: body.Description,
		UserID:      who.UserID,
		AuthToken:   c.GetString(ctxAuthToken),
		Metadata: models.Metadata{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		},
	})
	if err != nil {
		if appErr := apperr.As(err); appErr.HTTPStatus >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("request_id", c.GetString(ctxRequestID)).Msg("transaction creation failed")
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

func (h *Handler) listTransactions(c *gin.Context) {
	filter := interfaces.TransactionFilter{
		Account: c.Query("accountNumber"),
		Status:  models.Status(c.Query("status")),
		Limit:   parseInt(c.Query("limit"), ledger.DefaultPageSize),
		Skip:    parseInt(c.Query("skip"), 0),
	}

	transactions, err := h.service.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		if appErr := apperr.As(err); appErr.HTTPStatus >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Msg("failed to fetch transactions")
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

func writeError(c *gin.Context, err error) {
	appErr := apperr.As(err)
	c.JSON(appErr.HTTPStatus, errorResponse{
		Error:         appErr.Message,
		Code:          appErr.Code,
		Details:       appErr.Details,
		TransactionID: appErr.TransactionID,
	})
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
