package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudosos-ledger/internal/domain/invoice"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
)

var invoiceRowColumns = []string{"id", "to_id", "by_id", "is_credit_invoice", "addressee", "street", "postal_code",
	"city", "country", "reference", "description", "invoice_date", "created_at", "updated_at"}

var invoiceStatusColumns = []string{"id", "invoice_id", "state", "created_at"}

func newInvoiceRepo(mock pgxmock.PgxPoolIface) *InvoiceRepository {
	return &InvoiceRepository{querier: mock, ledger: testLedger, logger: newTestLogger()}
}

func TestInvoiceRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newInvoiceRepo(mock)
	now := time.Now().UTC()
	date := now.Truncate(24 * time.Hour)

	inv := &invoice.Invoice{
		ToID:        1,
		ByID:        99,
		Address:     invoice.Address{Addressee: "Jane", City: "Eindhoven"},
		Reference:   "BAC-1",
		Description: "Monthly invoice",
		Date:        date,
		Entries: []*invoice.Entry{
			{RowID: int64Ptr(700), Description: "Cola", Amount: 5, PriceInclVAT: money.New(100, "EUR", 2), VATPercentage: 9},
		},
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO invoices")).
			WithArgs(int64(1), int64(99), false, "Jane", "", "", "Eindhoven", "", "BAC-1", "Monthly invoice", date).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(5), now, now))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO invoice_entries")).
			WithArgs(int64(5), int64Ptr(700), "Cola", 5, int64(100), float64(9)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(50)))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO invoice_statuses")).
			WithArgs(int64(5), invoice.StateCreated).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(500), now))

		require.NoError(t, repo.Create(ctx, inv))
		assert.Equal(t, int64(5), inv.ID)
		assert.Equal(t, int64(50), inv.Entries[0].ID)
		assert.Equal(t, int64(5), inv.Entries[0].InvoiceID)
		require.Len(t, inv.Statuses, 1)
		assert.Equal(t, invoice.StateCreated, inv.State())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("entry insert fails", func(t *testing.T) {
		dbErr := errors.New("check violation")
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO invoices")).
			WithArgs(int64(1), int64(99), false, "Jane", "", "", "Eindhoven", "", "BAC-1", "Monthly invoice", date).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(6), now, now))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO invoice_entries")).
			WithArgs(int64(6), int64Ptr(700), "Cola", 5, int64(100), float64(9)).
			WillReturnError(dbErr)

		err := repo.Create(ctx, inv)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to create invoice entry")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvoiceRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newInvoiceRepo(mock)
	now := time.Now().UTC()

	t.Run("loads entries and statuses", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoices WHERE id = $1 FOR UPDATE")).
			WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows(invoiceRowColumns).
				AddRow(int64(5), int64(1), int64(99), false, "Jane", "", "", "", "", "", "", now, now, now))
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoice_entries WHERE invoice_id = $1")).
			WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "invoice_id", "row_id", "description", "amount", "price_incl_vat", "vat_percentage"}).
				AddRow(int64(50), int64(5), int64Ptr(700), "Cola", 5, int64(100), float64(9)).
				AddRow(int64(51), int64(5), int64Ptr(701), "Beer", 2, int64(150), float64(21)))
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoice_statuses WHERE invoice_id = ANY($1)")).
			WithArgs([]int64{5}).
			WillReturnRows(pgxmock.NewRows(invoiceStatusColumns).
				AddRow(int64(500), int64(5), invoice.StateCreated, now).
				AddRow(int64(501), int64(5), invoice.StateSent, now))

		inv, err := repo.LockForUpdate(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, invoice.StateSent, inv.State())
		total, err := inv.Total("EUR", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(800), total.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoices WHERE id = $1 FOR UPDATE")).
			WithArgs(int64(6)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.LockForUpdate(ctx, 6)
		assert.ErrorIs(t, err, invoice.ErrInvoiceNotFound{InvoiceID: 6})
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvoiceRepository_LastInvoiceDate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newInvoiceRepo(mock)
	query := regexp.QuoteMeta("SELECT MAX(i.created_at) FROM invoices i")
	last := time.Now().UTC().Add(-48 * time.Hour)

	t.Run("previous invoice", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(1), false).
			WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(&last))

		got, err := repo.LastInvoiceDate(ctx, 1, false)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, last, *got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("never invoiced", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(2), true).
			WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow((*time.Time)(nil)))

		got, err := repo.LastInvoiceDate(ctx, 2, true)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvoiceRepository_UpdateDetails(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newInvoiceRepo(mock)
	now := time.Now().UTC()
	inv := &invoice.Invoice{ID: 9, Reference: "BAC-9", Date: now}
	query := regexp.QuoteMeta("UPDATE invoices SET addressee = $1")

	mock.ExpectQuery(query).
		WithArgs("", "", "", "", "", "BAC-9", "", now, int64(9)).
		WillReturnError(pgx.ErrNoRows)

	err = repo.UpdateDetails(ctx, inv)
	assert.ErrorIs(t, err, invoice.ErrInvoiceNotFound{InvoiceID: 9})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_ListByAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newInvoiceRepo(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM invoices WHERE to_id = $1 ORDER BY created_at DESC, id DESC")).
		WithArgs(int64(1), 10, 0).
		WillReturnRows(pgxmock.NewRows(invoiceRowColumns).
			AddRow(int64(6), int64(1), int64(99), false, "", "", "", "", "", "", "", now, now, now).
			AddRow(int64(5), int64(1), int64(99), true, "", "", "", "", "", "", "", now, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM invoice_statuses")).
		WithArgs([]int64{6, 5}).
		WillReturnRows(pgxmock.NewRows(invoiceStatusColumns).
			AddRow(int64(500), int64(5), invoice.StateCreated, now).
			AddRow(int64(501), int64(5), invoice.StateDeleted, now).
			AddRow(int64(600), int64(6), invoice.StateCreated, now))

	invoices, err := repo.ListByAccount(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, invoice.StateCreated, invoices[0].State())
	assert.Equal(t, invoice.StateDeleted, invoices[1].State())
	assert.True(t, invoices[1].IsCreditInvoice)
	assert.NoError(t, mock.ExpectationsWereMet())
}
