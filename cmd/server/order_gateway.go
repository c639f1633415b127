package main

import (
	"context"
	"database/sql"
	"time"

	settlementdb "tollgate/internal/db/settlement"
	"tollgate/internal/settlement"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// orderStore is the combined store surface the server wires: the settlement
// gateway plus the buyer email lookup the initiator needs.
type orderStore interface {
	settlement.OrderGateway
	settlement.BuyerDirectory
}

var openOrderDB = func(driver, dsn string) (*sql.DB, error) {
	return sql.Open(driver, dsn)
}

// buildOrderGateway wires the order store from the Postgres DSN. An empty DSN
// falls back to the in-memory gateway, which is only useful for local
// development: settlement state then dies with the process.
func buildOrderGateway(ctx context.Context, dsn string, logf func(format string, args ...any)) (orderStore, func(), error) {
	cleanup := func() {}

	if dsn == "" {
		logf("DATABASE_URL not set, using in-memory order gateway")
		return settlement.NewInMemoryOrderGateway(), cleanup, nil
	}

	db, err := openOrderDB("pgx", dsn)
	if err != nil {
		return nil, nil, err
	}

	setupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	gateway, err := settlementdb.NewPostgresOrderGatewayWithSchema(setupCtx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	logf("postgres order gateway enabled")
	cleanup = func() {
		if err := db.Close(); err != nil {
			logf("close orders db: %v", err)
		}
	}
	return gateway, cleanup, nil
}
