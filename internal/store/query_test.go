package store

import (
	"context"
	"errors"
	"testing"

	"github.com/caresbot/caresbot/internal/core"
	"github.com/caresbot/caresbot/internal/policy"
)

func openSeeded(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.SeedDemoData(ctx); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestExecuteQuery_ScopedOrders(t *testing.T) {
	db := openSeeded(t)

	rows, err := db.ExecuteQuery(context.Background(), &policy.Query{
		Entity:  "orders",
		Columns: []string{"ORDER_ID", "STATUS", "DELIVERY_DATE"},
		Filters: []policy.Filter{{Column: "CUSTOMER_ID", Op: "=", Value: "C001"}},
		Limit:   10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: %d", len(rows))
	}
	for _, r := range rows {
		if r["ORDER_ID"] != "O001" && r["ORDER_ID"] != "O002" {
			t.Errorf("unexpected order for C001: %+v", r)
		}
	}
}

func TestExecuteQuery_RendersNullAsEmpty(t *testing.T) {
	db := openSeeded(t)

	rows, err := db.ExecuteQuery(context.Background(), &policy.Query{
		Entity:  "orders",
		Columns: []string{"ORDER_ID", "DELIVERY_DATE"},
		Filters: []policy.Filter{{Column: "ORDER_ID", Op: "=", Value: "O003"}},
		Limit:   1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: %d", len(rows))
	}
	if rows[0]["DELIVERY_DATE"] != "" {
		t.Errorf("NULL delivery date rendered as %q", rows[0]["DELIVERY_DATE"])
	}
}

func TestExecuteQuery_LikeAndComparisonOps(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	rows, err := db.ExecuteQuery(ctx, &policy.Query{
		Entity:  "products",
		Columns: []string{"PRODUCT_ID", "NAME"},
		Filters: []policy.Filter{{Column: "NAME", Op: "LIKE", Value: "%fan%"}},
		Limit:   10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["PRODUCT_ID"] != "P002" {
		t.Errorf("LIKE rows: %+v", rows)
	}

	rows, err = db.ExecuteQuery(ctx, &policy.Query{
		Entity:  "products",
		Columns: []string{"PRODUCT_ID", "PRICE"},
		Filters: []policy.Filter{{Column: "PRICE", Op: "<=", Value: "7000"}},
		Limit:   10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("<= rows: %+v", rows)
	}
}

func TestExecuteQuery_RespectsLimit(t *testing.T) {
	db := openSeeded(t)

	rows, err := db.ExecuteQuery(context.Background(), &policy.Query{
		Entity:  "products",
		Columns: []string{"PRODUCT_ID"},
		Limit:   1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("limit not applied: %d rows", len(rows))
	}
}

func TestExecuteQuery_DriverErrorIsBackendUnavailable(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	_, err = db.ExecuteQuery(ctx, &policy.Query{
		Entity:  "orders",
		Columns: []string{"ORDER_ID"},
		Limit:   1,
	})
	if err == nil {
		t.Fatal("query on closed database succeeded")
	}
	if !errors.Is(err, core.ErrBackendUnavailable) {
		t.Errorf("error not wrapped as backend unavailable: %v", err)
	}
}

func TestSeedDemoData_Idempotent(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	if err := db.SeedDemoData(ctx); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("customers: %d", n)
	}
}
