// Package settlementdb persists orders and payment receipts in Postgres. The
// conditional UPDATE in TransitionFromPending is the store-level
// compare-and-set the two settlement entries serialize on; it works across
// processes, unlike an in-process mutex.
package settlementdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tollgate/internal/settlement"
)

// PostgresOrderGateway reads and transitions orders in Postgres.
type PostgresOrderGateway struct {
	db *sql.DB
}

// NewPostgresOrderGateway constructs an OrderGateway backed by Postgres.
func NewPostgresOrderGateway(db *sql.DB) *PostgresOrderGateway {
	return &PostgresOrderGateway{db: db}
}

// NewPostgresOrderGatewayWithSchema initializes the schema then returns the
// gateway.
func NewPostgresOrderGatewayWithSchema(ctx context.Context, db *sql.DB) (*PostgresOrderGateway, error) {
	gateway := NewPostgresOrderGateway(db)
	if err := gateway.InitSchema(ctx); err != nil {
		return nil, err
	}
	return gateway, nil
}

// InitSchema creates the orders and payment_receipts tables if they do not
// exist.
func (g *PostgresOrderGateway) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'pending',
			total NUMERIC(12,2) NOT NULL,
			buyer_email TEXT NOT NULL DEFAULT '',
			payment_message TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS payment_receipts (
			order_id TEXT PRIMARY KEY,
			reference TEXT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range statements {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *PostgresOrderGateway) Load(ctx context.Context, orderID string) (settlement.Order, error) {
	if orderID == "" {
		return settlement.Order{}, fmt.Errorf("order id required")
	}

	row := g.db.QueryRowContext(ctx,
		`SELECT id, status, total, payment_message FROM orders WHERE id = $1`, orderID)

	var order settlement.Order
	var status string
	switch err := row.Scan(&order.ID, &status, &order.Total, &order.PaymentMessage); {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		return settlement.Order{}, settlement.ErrOrderNotFound
	default:
		return settlement.Order{}, err
	}

	parsed, err := settlement.ParseStatus(status)
	if err != nil {
		return settlement.Order{}, err
	}
	order.Status = parsed
	return order, nil
}

// TransitionFromPending moves the order to a terminal status only if it is
// still pending. Exactly one of any set of racing callers observes true.
func (g *PostgresOrderGateway) TransitionFromPending(ctx context.Context, orderID string, to settlement.OrderStatus, message string) (bool, error) {
	if orderID == "" {
		return false, fmt.Errorf("order id required")
	}

	res, err := g.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, payment_message = $3, updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		orderID, string(to), message)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkPaymentComplete records the provider reference once per order.
// Idempotent: a second call for the same order is a no-op.
func (g *PostgresOrderGateway) MarkPaymentComplete(ctx context.Context, orderID, reference string) error {
	if orderID == "" {
		return fmt.Errorf("order id required")
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO payment_receipts (order_id, reference) VALUES ($1, $2) ON CONFLICT (order_id) DO NOTHING`,
		orderID, reference)
	return err
}

// CheckoutEmail returns the buyer email recorded on the order.
func (g *PostgresOrderGateway) CheckoutEmail(ctx context.Context, orderID string) (string, error) {
	if orderID == "" {
		return "", fmt.Errorf("order id required")
	}

	var email string
	row := g.db.QueryRowContext(ctx, `SELECT buyer_email FROM orders WHERE id = $1`, orderID)
	switch err := row.Scan(&email); {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		return "", settlement.ErrOrderNotFound
	default:
		return "", err
	}
	if email == "" {
		return "", errors.New("buyer unavailable")
	}
	return email, nil
}
