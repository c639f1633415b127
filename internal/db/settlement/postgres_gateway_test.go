package settlementdb

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"tollgate/internal/settlement"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	}

	return db, mock, cleanup
}

func TestPostgresGateway_InitSchema(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS payment_receipts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)
	if err := gateway.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
}

func TestPostgresGateway_WithSchemaHelper(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS payment_receipts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	gateway, err := NewPostgresOrderGatewayWithSchema(context.Background(), db)
	if err != nil {
		t.Fatalf("helper: %v", err)
	}
	if gateway == nil {
		t.Fatalf("expected gateway")
	}
}

func TestPostgresGateway_WithSchemaHelperError(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").
		WillReturnError(errors.New("boom"))
	mock.ExpectClose()

	gateway, err := NewPostgresOrderGatewayWithSchema(context.Background(), db)
	if err == nil {
		t.Fatalf("expected error")
	}
	if gateway != nil {
		t.Fatalf("expected nil gateway on error")
	}
}

func TestPostgresGateway_Load(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	rows := sqlmock.NewRows([]string{"id", "status", "total", "payment_message"}).
		AddRow("order-1", "pending", "500.00", "")
	mock.ExpectQuery("SELECT id, status, total, payment_message FROM orders").
		WithArgs("order-1").
		WillReturnRows(rows)
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)

	order, err := gateway.Load(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if order.ID != "order-1" || order.Status != settlement.StatusPending {
		t.Fatalf("unexpected order %+v", order)
	}
	if !order.Total.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("unexpected total %s", order.Total)
	}
}

func TestPostgresGateway_Load_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectQuery("SELECT id, status, total, payment_message FROM orders").
		WithArgs("order-404").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)
	if _, err := gateway.Load(context.Background(), "order-404"); !errors.Is(err, settlement.ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresGateway_Load_UnknownStatus(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	rows := sqlmock.NewRows([]string{"id", "status", "total", "payment_message"}).
		AddRow("order-1", "shipped", "500.00", "")
	mock.ExpectQuery("SELECT id, status, total, payment_message FROM orders").
		WithArgs("order-1").
		WillReturnRows(rows)
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)
	if _, err := gateway.Load(context.Background(), "order-1"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestPostgresGateway_Load_EmptyOrderID(t *testing.T) {
	gateway := NewPostgresOrderGateway(nil)
	if _, err := gateway.Load(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty order id")
	}
}

func TestPostgresGateway_TransitionFromPending_Wins(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("order-1", "completed", "Verification successful").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)

	moved, err := gateway.TransitionFromPending(context.Background(), "order-1", settlement.StatusCompleted, "Verification successful")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !moved {
		t.Fatalf("expected transition to win")
	}
}

func TestPostgresGateway_TransitionFromPending_Loses(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("order-1", "failed", "late decline").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)

	moved, err := gateway.TransitionFromPending(context.Background(), "order-1", settlement.StatusFailed, "late decline")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if moved {
		t.Fatalf("expected transition to lose when order is no longer pending")
	}
}

func TestPostgresGateway_TransitionFromPending_ExecError(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("order-err", "completed", "").
		WillReturnError(errors.New("boom"))
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)
	if _, err := gateway.TransitionFromPending(context.Background(), "order-err", settlement.StatusCompleted, ""); err == nil {
		t.Fatalf("expected exec error")
	}
}

func TestPostgresGateway_TransitionFromPending_RowsAffectedError(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("order-err", "completed", "").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows affected boom")))
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)
	if _, err := gateway.TransitionFromPending(context.Background(), "order-err", settlement.StatusCompleted, ""); err == nil {
		t.Fatalf("expected rows affected error")
	}
}

func TestPostgresGateway_TransitionFromPending_EmptyOrderID(t *testing.T) {
	gateway := NewPostgresOrderGateway(nil)
	if _, err := gateway.TransitionFromPending(context.Background(), "", settlement.StatusCompleted, ""); err == nil {
		t.Fatalf("expected error for empty order id")
	}
}

func TestPostgresGateway_MarkPaymentComplete_Idempotent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("INSERT INTO payment_receipts").
		WithArgs("order-1", "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Conflict path: insert is a no-op, still no error.
	mock.ExpectExec("INSERT INTO payment_receipts").
		WithArgs("order-1", "order-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)

	if err := gateway.MarkPaymentComplete(context.Background(), "order-1", "order-1"); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := gateway.MarkPaymentComplete(context.Background(), "order-1", "order-1"); err != nil {
		t.Fatalf("second mark: %v", err)
	}
}

func TestPostgresGateway_MarkPaymentComplete_EmptyOrderID(t *testing.T) {
	gateway := NewPostgresOrderGateway(nil)
	if err := gateway.MarkPaymentComplete(context.Background(), "", "ref"); err == nil {
		t.Fatalf("expected error for empty order id")
	}
}

func TestPostgresGateway_CheckoutEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectQuery("SELECT buyer_email FROM orders").
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"buyer_email"}).AddRow("buyer@example.com"))
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)

	email, err := gateway.CheckoutEmail(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("checkout email: %v", err)
	}
	if email != "buyer@example.com" {
		t.Fatalf("unexpected email %q", email)
	}
}

func TestPostgresGateway_CheckoutEmail_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectQuery("SELECT buyer_email FROM orders").
		WithArgs("order-404").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)
	if _, err := gateway.CheckoutEmail(context.Background(), "order-404"); !errors.Is(err, settlement.ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresGateway_CheckoutEmail_Empty(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectQuery("SELECT buyer_email FROM orders").
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"buyer_email"}).AddRow(""))
	mock.ExpectClose()

	gateway := NewPostgresOrderGateway(db)
	if _, err := gateway.CheckoutEmail(context.Background(), "order-1"); err == nil {
		t.Fatalf("expected error for missing buyer email")
	}
}
