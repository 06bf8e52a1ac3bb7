package orders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/caresbot/caresbot/internal/core"
	"github.com/caresbot/caresbot/internal/policy"
	"github.com/caresbot/caresbot/internal/store"
	"github.com/caresbot/caresbot/internal/tools"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.SeedDemoData(ctx); err != nil {
		t.Fatal(err)
	}
	return NewBackend(db, policy.NewEngine(policy.DefaultRules()))
}

func newRegistry(t *testing.T, b *Backend) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry(5 * time.Second)
	if err := b.Register(reg); err != nil {
		t.Fatal(err)
	}
	reg.Seal()
	return reg
}

func TestQueryOrders_ScopedToInvokerIdentity(t *testing.T) {
	reg := newRegistry(t, newBackend(t))

	res, err := reg.Invoke(context.Background(), "query_orders",
		`{"columns":["ORDER_ID","STATUS"]}`, "C001")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Normalized, "Found 2 order(s)") {
		t.Errorf("normalized: %q", res.Normalized)
	}
	if strings.Contains(res.Normalized, "O003") {
		t.Error("another customer's order leaked")
	}
}

func TestQueryOrders_ByID(t *testing.T) {
	reg := newRegistry(t, newBackend(t))

	res, err := reg.Invoke(context.Background(), "query_orders",
		`{"columns":["ORDER_ID","DELIVERY_DATE"],"order_id":"O001"}`, "C001")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Normalized, "O001") || !strings.Contains(res.Normalized, "2025-01-06") {
		t.Errorf("normalized: %q", res.Normalized)
	}

	// Same order id under a different identity must return nothing.
	res, err = reg.Invoke(context.Background(), "query_orders",
		`{"columns":["ORDER_ID"],"order_id":"O001"}`, "C002")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Normalized, "No matching order") {
		t.Errorf("cross-customer lookup: %q", res.Normalized)
	}
}

func TestQueryOrders_DisallowedColumnRejected(t *testing.T) {
	reg := newRegistry(t, newBackend(t))

	_, err := reg.Invoke(context.Background(), "query_orders",
		`{"columns":["CREDIT_CARD_NUMBER"]}`, "C001")
	var pv *core.PolicyViolation
	if !errors.As(err, &pv) {
		t.Fatalf("expected PolicyViolation, got %v", err)
	}
}

func TestQueryOrders_RequiresIdentity(t *testing.T) {
	reg := newRegistry(t, newBackend(t))

	_, err := reg.Invoke(context.Background(), "query_orders",
		`{"columns":["ORDER_ID"]}`, "")
	var pv *core.PolicyViolation
	if !errors.As(err, &pv) {
		t.Fatalf("expected PolicyViolation, got %v", err)
	}
}

func TestQueryProducts_NameAndBudget(t *testing.T) {
	reg := newRegistry(t, newBackend(t))

	res, err := reg.Invoke(context.Background(), "query_products",
		`{"columns":["NAME","PRICE"],"name":"fan"}`, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Normalized, "Breeze Tower Fan") {
		t.Errorf("normalized: %q", res.Normalized)
	}

	res, err = reg.Invoke(context.Background(), "query_products",
		`{"columns":["NAME"],"max_price":7000}`, "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.Normalized, "Aurora X1 Phone") {
		t.Errorf("price filter ignored: %q", res.Normalized)
	}
}

func TestQueryInventory_StockLevels(t *testing.T) {
	reg := newRegistry(t, newBackend(t))

	res, err := reg.Invoke(context.Background(), "query_inventory",
		`{"columns":["STOCK_QUANTITY","WAREHOUSE"],"product_id":"P001"}`, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Normalized, "Stock Quantity: 42") {
		t.Errorf("normalized: %q", res.Normalized)
	}
}

func TestNormalizeRows(t *testing.T) {
	rows := []store.Row{
		{"ORDER_ID": "O001", "DELIVERY_DATE": ""},
	}
	out := NormalizeRows("order", []string{"ORDER_ID", "DELIVERY_DATE"}, rows)
	if !strings.Contains(out, "Order ID: O001") {
		t.Errorf("humanized column missing: %q", out)
	}
	if !strings.Contains(out, "Delivery Date: not available") {
		t.Errorf("empty value not softened: %q", out)
	}
	if strings.Contains(out, "{") || strings.Contains(out, "|") {
		t.Errorf("structured formatting leaked: %q", out)
	}

	if out := NormalizeRows("order", nil, nil); !strings.Contains(out, "No matching orders") {
		t.Errorf("empty result: %q", out)
	}
}
