package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/platform/messaging/producers"
)

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) ListIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAccountRepo) LockForUpdate(ctx context.Context, id int64) (*account.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	return m
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, mail Mail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	return m.Called().Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encode(t *testing.T, e *event.Event) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

func TestEventHandler_HandleMessage(t *testing.T) {
	ctx := context.Background()
	alice := &account.Account{ID: 1, Name: "Alice", Email: "alice@example.org", Active: true}
	bob := &account.Account{ID: 2, Name: "Bob", Active: true}

	writeOff := event.New(event.TypeWriteOffCreated, 4, 1).WithAmount(money.New(1200, "EUR", 2))
	invoice := event.New(event.TypeInvoiceCreated, 7, 1, 2).WithAmount(money.New(800, "EUR", 2))

	t.Run("MailsEveryAccountWithAnAddress", func(t *testing.T) {
		accounts, mailer, dlq := &MockAccountRepo{}, &MockMailer{}, &MockDeadLetterPublisher{}
		accounts.On("GetByID", ctx, int64(1)).Return(alice, nil).Once()
		accounts.On("GetByID", ctx, int64(2)).Return(bob, nil).Once()
		mailer.On("Send", ctx, mock.MatchedBy(func(m Mail) bool {
			return m.ToEmail == "alice@example.org" && m.Subject == "Invoice #7 created" &&
				m.PlainText == "An invoice of EUR 8.00 has been created for your account."
		})).Return(nil).Once()

		handler := NewEventHandler(discardLogger(), accounts, mailer, dlq)
		require.NoError(t, handler.HandleMessage(ctx, []byte("7"), encode(t, invoice)))

		accounts.AssertExpectations(t)
		mailer.AssertExpectations(t)
	})

	t.Run("SkipsNonNotifiableEvents", func(t *testing.T) {
		accounts, mailer, dlq := &MockAccountRepo{}, &MockMailer{}, &MockDeadLetterPublisher{}
		handler := NewEventHandler(discardLogger(), accounts, mailer, dlq)

		e := event.New(event.TypeTransferCreated, 1, 1)
		require.NoError(t, handler.HandleMessage(ctx, nil, encode(t, e)))
		accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("UnknownAccountIsSkipped", func(t *testing.T) {
		accounts, mailer, dlq := &MockAccountRepo{}, &MockMailer{}, &MockDeadLetterPublisher{}
		accounts.On("GetByID", ctx, int64(1)).Return(nil, account.ErrAccountNotFound{AccountID: 1}).Once()

		handler := NewEventHandler(discardLogger(), accounts, mailer, dlq)
		require.NoError(t, handler.HandleMessage(ctx, nil, encode(t, writeOff)))
		mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("MailFailureIsRetried", func(t *testing.T) {
		accounts, mailer, dlq := &MockAccountRepo{}, &MockMailer{}, &MockDeadLetterPublisher{}
		accounts.On("GetByID", ctx, int64(1)).Return(alice, nil).Once()
		mailer.On("Send", ctx, mock.Anything).Return(errors.New("sendgrid down")).Once()

		handler := NewEventHandler(discardLogger(), accounts, mailer, dlq)
		err := handler.HandleMessage(ctx, nil, encode(t, writeOff))
		assert.ErrorContains(t, err, "failed to notify account 1")
	})

	t.Run("UndecodableGoesToDLQ", func(t *testing.T) {
		accounts, mailer, dlq := &MockAccountRepo{}, &MockMailer{}, &MockDeadLetterPublisher{}
		dlq.On("PublishToDLQ", ctx, "k", []byte("{"), mock.AnythingOfType("string")).Return(nil).Once()

		handler := NewEventHandler(discardLogger(), accounts, mailer, dlq)
		require.NoError(t, handler.HandleMessage(ctx, []byte("k"), []byte("{")))
		dlq.AssertExpectations(t)
	})

	t.Run("UndecodableWithDLQFailureIsRetried", func(t *testing.T) {
		accounts, mailer, dlq := &MockAccountRepo{}, &MockMailer{}, &MockDeadLetterPublisher{}
		dlq.On("PublishToDLQ", ctx, "k", []byte("{"), mock.AnythingOfType("string")).Return(errors.New("dlq down")).Once()

		handler := NewEventHandler(discardLogger(), accounts, mailer, dlq)
		assert.Error(t, handler.HandleMessage(ctx, []byte("k"), []byte("{")))
	})

	t.Run("UndecodableWithDLQDisabledIsDropped", func(t *testing.T) {
		var disabled *producers.DLQProducer
		handler := NewEventHandler(discardLogger(), &MockAccountRepo{}, &MockMailer{}, disabled)
		assert.NoError(t, handler.HandleMessage(ctx, []byte("k"), []byte("{")))
	})
}

func TestRender(t *testing.T) {
	to := &account.Account{ID: 1, Name: "A <b>", Email: "a@example.org"}

	m, ok := render(event.New(event.TypePayoutStatusChanged, 3, 1).WithState("APPROVED"), to)
	require.True(t, ok)
	assert.Equal(t, "Payout request #3 is now APPROVED", m.Subject)
	assert.Contains(t, m.HTML, "A &lt;b&gt;")

	_, ok = render(event.New(event.TypeBalancesRecalculated, 0), to)
	assert.False(t, ok)
}
