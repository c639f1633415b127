package main

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"tollgate/internal/realtime"
	"tollgate/internal/settlement"
)

func TestBuildOrderGateway_InMemoryFallback(t *testing.T) {
	store, cleanup, err := buildOrderGateway(context.Background(), "", func(string, ...any) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(cleanup)

	if _, ok := store.(*settlement.InMemoryOrderGateway); !ok {
		t.Fatalf("expected in-memory gateway, got %T", store)
	}
}

func TestBuildOrderGateway_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS payment_receipts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	orig := openOrderDB
	openOrderDB = func(driver, dsn string) (*sql.DB, error) {
		if driver != "pgx" {
			t.Fatalf("unexpected driver %q", driver)
		}
		if dsn != "postgres://localhost/orders" {
			t.Fatalf("unexpected dsn %q", dsn)
		}
		return db, nil
	}
	t.Cleanup(func() { openOrderDB = orig })

	store, cleanup, err := buildOrderGateway(context.Background(), "postgres://localhost/orders", func(string, ...any) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cleanup()

	if store == nil {
		t.Fatalf("expected store")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBuildOrderGateway_SchemaFailureClosesDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").
		WillReturnError(errors.New("boom"))
	mock.ExpectClose()

	orig := openOrderDB
	openOrderDB = func(driver, dsn string) (*sql.DB, error) { return db, nil }
	t.Cleanup(func() { openOrderDB = orig })

	if _, _, err := buildOrderGateway(context.Background(), "postgres://localhost/orders", func(string, ...any) {}); err == nil {
		t.Fatalf("expected schema error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBuildEventPublisher_HubOnlyWithoutRedis(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	hub := realtime.NewHub()
	publisher, cleanup, err := buildEventPublisher(context.Background(), hub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(cleanup)

	if publisher == nil {
		t.Fatalf("expected publisher")
	}
}

func TestBuildEventPublisher_BadRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "not a url")

	hub := realtime.NewHub()
	if _, _, err := buildEventPublisher(context.Background(), hub); err == nil {
		t.Fatalf("expected error for malformed redis url")
	}
}
