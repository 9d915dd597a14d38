package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

func TestSendDomainErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"not found", domainerrors.NotFound("wallet"), http.StatusNotFound, "NOT_FOUND"},
		{"insufficient funds", domainerrors.InsufficientFunds("gains"), http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"funds locked", domainerrors.FundsLocked(30), http.StatusUnprocessableEntity, "FUNDS_LOCKED"},
		{"contract not matured", domainerrors.ContractNotMatured(5), http.StatusUnprocessableEntity, "CONTRACT_NOT_MATURED"},
		{"no elapsed days", domainerrors.NoElapsedDays(), http.StatusUnprocessableEntity, "NO_ELAPSED_DAYS"},
		{"no interest", domainerrors.NoInterest(), http.StatusUnprocessableEntity, "NO_INTEREST"},
		{"offer unavailable", domainerrors.OfferUnavailable(), http.StatusUnprocessableEntity, "OFFER_UNAVAILABLE"},
		{"validation", domainerrors.ValidationError("bad amount"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"busy", domainerrors.Busy(errors.New("lock not available")), http.StatusServiceUnavailable, "BUSY"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			SendDomainError(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var resp ErrorResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestTransferBucketRequestValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		header         string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "missing user header",
			body:           map[string]string{"currency": "USDT", "from": "gains", "to": "available", "amount": "10"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "garbage user header",
			header:         "not-a-uuid",
			body:           map[string]string{"currency": "USDT", "from": "gains", "to": "available", "amount": "10"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown bucket",
			header:         "b7a5ff1e-6a9d-4f4a-9bb0-54b12a3e9d01",
			body:           map[string]string{"currency": "USDT", "from": "savings", "to": "available", "amount": "10"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing amount",
			header:         "b7a5ff1e-6a9d-4f4a-9bb0-54b12a3e9d01",
			body:           map[string]string{"currency": "USDT", "from": "gains", "to": "available"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "amount not a decimal",
			header:         "b7a5ff1e-6a9d-4f4a-9bb0-54b12a3e9d01",
			body:           map[string]string{"currency": "USDT", "from": "gains", "to": "available", "amount": "ten"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// validation fails before the handler touches its service
			h := NewWalletHandlers(nil, logger.NewNop())

			router := gin.New()
			router.POST("/wallets/transfers", h.TransferBucket)

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/wallets/transfers", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				req.Header.Set(userIDHeader, tt.header)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestCompleteDepositRejectsBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewFundingHandlers(nil, logger.NewNop())

	router := gin.New()
	router.POST("/deposits/:id/complete", h.CompleteDeposit)

	req := httptest.NewRequest(http.MethodPost, "/deposits/not-a-uuid/complete", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
