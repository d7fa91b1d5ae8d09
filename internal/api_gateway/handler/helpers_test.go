package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sudosos-ledger/internal/api_gateway/middleware"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/balance"
	"github.com/sudosos-ledger/internal/domain/invoice"
	"github.com/sudosos-ledger/internal/domain/payout"
	"github.com/sudosos-ledger/internal/domain/transaction"
	ledger "github.com/sudosos-ledger/internal/ledger/service"
)

const testSecret = "handler-test-secret"

var testLedger = config.LedgerConfig{Currency: "EUR", Precision: 2, BalanceChunkSize: 10}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRouter wires the production middleware in front of the handler under test
func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID(), middleware.Auth(testSecret))
	return r
}

func tokenFor(t *testing.T, accountID int64, roles ...string) string {
	t.Helper()
	claims := middleware.Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func request(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// decodeError returns the error code of a response
func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

type MockBalanceService struct{ mock.Mock }

func (m *MockBalanceService) GetBalance(ctx context.Context, accountID int64) (*balance.Balance, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockBalanceService) GetBalances(ctx context.Context, accountIDs []int64) ([]*balance.Balance, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*balance.Balance), args.Error(1)
}

func (m *MockBalanceService) UpdateBalances(ctx context.Context, accountIDs []int64) (int, error) {
	args := m.Called(ctx, accountIDs)
	return args.Int(0), args.Error(1)
}

type MockInvoiceService struct{ mock.Mock }

func (m *MockInvoiceService) CreateInvoice(ctx context.Context, params ledger.CreateInvoiceParams) (*invoice.Invoice, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceService) UpdateInvoice(ctx context.Context, params ledger.UpdateInvoiceParams) (*invoice.Invoice, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceService) DeleteInvoice(ctx context.Context, invoiceID, byID int64) (*invoice.Invoice, error) {
	args := m.Called(ctx, invoiceID, byID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, id int64) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

type MockPayoutService struct{ mock.Mock }

func (m *MockPayoutService) CreatePayoutRequest(ctx context.Context, params ledger.CreatePayoutParams) (*payout.PayoutRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.PayoutRequest), args.Error(1)
}

func (m *MockPayoutService) GetPayoutRequest(ctx context.Context, id int64) (*payout.PayoutRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.PayoutRequest), args.Error(1)
}

func (m *MockPayoutService) UpdateStatus(ctx context.Context, id int64, next payout.State, actorID int64) (*payout.PayoutRequest, error) {
	args := m.Called(ctx, id, next, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.PayoutRequest), args.Error(1)
}

type MockTransactionService struct{ mock.Mock }

func (m *MockTransactionService) CreateTransaction(ctx context.Context, t *transaction.Transaction) (*transaction.Transaction, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetTransaction(ctx context.Context, id int64) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*transaction.Transaction, int64, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*transaction.Transaction), args.Get(1).(int64), args.Error(2)
}
