// Package handlers exposes the ledger core over HTTP. The service runs
// behind an authenticating gateway, so handlers trust the X-User-ID header
// instead of carrying their own auth stack.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
)

const userIDHeader = "X-User-ID"

// ErrorResponse is the wire shape for all error replies
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps all success replies
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func getUserID(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader(userIDHeader)
	if raw == "" {
		return uuid.Nil, errors.New("missing user ID header")
	}
	return uuid.Parse(raw)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New("amount is not a valid decimal")
	}
	return amount, nil
}

// SendSuccess writes a 200 with the standard envelope
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// SendCreated writes a 201 with the standard envelope
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// SendBadRequest writes a 400
func SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: "BAD_REQUEST", Message: message})
}

// SendUnauthorized writes a 401
func SendUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: message})
}

// SendDomainError maps a domain error to the right HTTP status. Codes and
// messages come from the domain error itself, so nothing internal leaks.
func SendDomainError(c *gin.Context, err error) {
	code := domainerrors.GetErrorCode(err)

	status := http.StatusInternalServerError
	message := "internal error"

	var domainErr *domainerrors.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
		switch {
		case domainerrors.IsNotFound(err):
			status = http.StatusNotFound
		case domainerrors.IsInsufficientFunds(err),
			errors.Is(err, domainerrors.ErrFundsLocked),
			errors.Is(err, domainerrors.ErrContractNotMatured),
			errors.Is(err, domainerrors.ErrNoElapsedDays),
			errors.Is(err, domainerrors.ErrNoInterest),
			errors.Is(err, domainerrors.ErrOfferUnavailable),
			errors.Is(err, domainerrors.ErrNotActive):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, domainerrors.ErrInvalidInput):
			status = http.StatusBadRequest
		case domainerrors.IsAlreadyProcessed(err):
			status = http.StatusConflict
		case domainerrors.IsBusy(err):
			status = http.StatusServiceUnavailable
		}
	} else if domainerrors.IsNotFound(err) {
		status = http.StatusNotFound
		message = "resource not found"
	} else if domainerrors.IsAlreadyProcessed(err) {
		status = http.StatusConflict
		message = "already processed"
	}

	c.JSON(status, ErrorResponse{Code: code, Message: message})
}
