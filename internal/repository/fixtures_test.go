package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

var orderCols = []string{
	"id", "order_number", "customer_id", "vendor_id", "service_id", "price", "status", "payment_status",
	"service_date", "service_time", "location", "notes", "completed_at", "cancelled_at", "created_at", "updated_at",
}

func orderRow(rows *sqlmock.Rows, id, customer, vendor uuid.UUID, status string) *sqlmock.Rows {
	return rows.AddRow(
		id.String(), "ORD-20260301-000001", customer.String(), vendor.String(), uuid.NewString(), "200.00", status, "paid",
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), "10:00", nil, nil, nil, nil, fixedNow, fixedNow,
	)
}

var disputeCols = []string{
	"id", "dispute_number", "order_id", "customer_id", "vendor_id", "reason", "reason_code", "status",
	"resolution", "resolution_notes", "resolved_by", "resolved_at", "created_at", "updated_at",
}

var transactionCols = []string{
	"id", "user_id", "type", "category", "amount", "status", "reference_type", "reference_id", "description",
	"created_at", "updated_at",
}
