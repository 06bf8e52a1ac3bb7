// Package orders is the structured-query capability backend: constrained,
// policy-validated reads over the relational customer data (orders, products,
// inventory). The model never writes SQL; it supplies entity-typed arguments
// and the backend builds the query after validation, with the customer scope
// injected by the orchestrator's bound identity.
package orders

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/caresbot/caresbot/internal/core"
	"github.com/caresbot/caresbot/internal/policy"
	"github.com/caresbot/caresbot/internal/store"
	"github.com/caresbot/caresbot/internal/tools"
)

// Backend executes validated structured queries against the store.
type Backend struct {
	DB     *store.DB
	Engine *policy.Engine
	logger *log.Logger
}

// NewBackend creates the structured backend.
func NewBackend(db *store.DB, engine *policy.Engine) *Backend {
	return &Backend{
		DB:     db,
		Engine: engine,
		logger: log.New(log.Writer(), "[ORDERS] ", log.LstdFlags),
	}
}

// Query validates and executes one structured read. This is the only path
// into the relational source; validation failure means no backend call.
func (b *Backend) Query(ctx context.Context, entity string, columns []string, filters []policy.Filter, limit int, customerID string) ([]store.Row, error) {
	q, err := b.Engine.ValidateStructuredQuery(entity, columns, filters, limit, customerID)
	if err != nil {
		return nil, err
	}
	return b.DB.ExecuteQuery(ctx, q)
}

// Register adds the structured-query tools to the registry.
func (b *Backend) Register(reg *tools.Registry) error {
	for _, d := range []*tools.Descriptor{b.ordersDescriptor(), b.productsDescriptor(), b.inventoryDescriptor()} {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) ordersDescriptor() *tools.Descriptor {
	return &tools.Descriptor{
		Name:        "query_orders",
		Description: "Look up the logged-in customer's orders. Results are always restricted to that customer.",
		Capability:  core.CapStructuredQuery,
		ReadOnly:    true,
		Params: map[string]tools.Param{
			"columns":  {Type: "array", Items: "string", Required: true, Description: "Order columns to return (e.g. ORDER_ID, STATUS, DELIVERY_DATE)."},
			"order_id": {Type: "string", Description: "Restrict to one order id."},
			"status":   {Type: "string", Description: "Restrict to orders with this status (e.g. Delivered, Shipped)."},
			"limit":    {Type: "integer", Description: "Maximum rows to return (default 10)."},
		},
		Handler: func(ctx context.Context, req tools.Request) (tools.Result, error) {
			var filters []policy.Filter
			if id := tools.StringArg(req.Args, "order_id"); id != "" {
				filters = append(filters, policy.Filter{Column: "ORDER_ID", Op: "=", Value: id})
			}
			if s := tools.StringArg(req.Args, "status"); s != "" {
				filters = append(filters, policy.Filter{Column: "STATUS", Op: "=", Value: s})
			}
			return b.run(ctx, "orders", req, filters, "order")
		},
	}
}

func (b *Backend) productsDescriptor() *tools.Descriptor {
	return &tools.Descriptor{
		Name:        "query_products",
		Description: "Look up catalog products by id, name, brand, category, or budget.",
		Capability:  core.CapStructuredQuery,
		ReadOnly:    true,
		Params: map[string]tools.Param{
			"columns":    {Type: "array", Items: "string", Required: true, Description: "Product columns to return (e.g. NAME, BRAND, PRICE, RATING)."},
			"product_id": {Type: "string", Description: "Restrict to one product id."},
			"name":       {Type: "string", Description: "Match product names containing this text."},
			"brand":      {Type: "string", Description: "Restrict to one brand."},
			"category":   {Type: "string", Description: "Restrict to one category."},
			"max_price":  {Type: "number", Description: "Only products at or below this price (budget queries)."},
			"limit":      {Type: "integer", Description: "Maximum rows to return (default 10)."},
		},
		Handler: func(ctx context.Context, req tools.Request) (tools.Result, error) {
			var filters []policy.Filter
			if id := tools.StringArg(req.Args, "product_id"); id != "" {
				filters = append(filters, policy.Filter{Column: "PRODUCT_ID", Op: "=", Value: id})
			}
			if n := tools.StringArg(req.Args, "name"); n != "" {
				filters = append(filters, policy.Filter{Column: "NAME", Op: "LIKE", Value: "%" + n + "%"})
			}
			if v := tools.StringArg(req.Args, "brand"); v != "" {
				filters = append(filters, policy.Filter{Column: "BRAND", Op: "=", Value: v})
			}
			if v := tools.StringArg(req.Args, "category"); v != "" {
				filters = append(filters, policy.Filter{Column: "CATEGORY", Op: "=", Value: v})
			}
			if _, ok := req.Args["max_price"]; ok {
				filters = append(filters, policy.Filter{Column: "PRICE", Op: "<=", Value: fmt.Sprintf("%v", req.Args["max_price"])})
			}
			return b.run(ctx, "products", req, filters, "product")
		},
	}
}

func (b *Backend) inventoryDescriptor() *tools.Descriptor {
	return &tools.Descriptor{
		Name:        "query_inventory",
		Description: "Check stock levels for a product.",
		Capability:  core.CapStructuredQuery,
		ReadOnly:    true,
		Params: map[string]tools.Param{
			"columns":    {Type: "array", Items: "string", Required: true, Description: "Inventory columns to return (e.g. STOCK_QUANTITY, WAREHOUSE)."},
			"product_id": {Type: "string", Description: "Restrict to one product id."},
			"limit":      {Type: "integer", Description: "Maximum rows to return (default 10)."},
		},
		Handler: func(ctx context.Context, req tools.Request) (tools.Result, error) {
			var filters []policy.Filter
			if id := tools.StringArg(req.Args, "product_id"); id != "" {
				filters = append(filters, policy.Filter{Column: "PRODUCT_ID", Op: "=", Value: id})
			}
			return b.run(ctx, "inventory", req, filters, "inventory record")
		},
	}
}

func (b *Backend) run(ctx context.Context, entity string, req tools.Request, filters []policy.Filter, noun string) (tools.Result, error) {
	columns := tools.StringSliceArg(req.Args, "columns")
	limit := tools.IntArg(req.Args, "limit")
	if limit == 0 {
		limit = 10
	}
	rows, err := b.Query(ctx, entity, columns, filters, limit, req.CustomerID)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Normalized: NormalizeRows(noun, columns, rows),
		Raw:        rawRows(rows),
	}, nil
}

// NormalizeRows renders result rows as plain sentences. Raw tabular or JSON
// structures never go back to the caller; leaking them to the end user is an
// explicit failure mode.
func NormalizeRows(noun string, columns []string, rows []store.Row) string {
	if len(rows) == 0 {
		return fmt.Sprintf("No matching %ss were found.", noun)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s(s).\n", len(rows), noun)
	for i, row := range rows {
		fmt.Fprintf(&b, "%d. ", i+1)
		parts := make([]string, 0, len(columns))
		for _, c := range columns {
			v := row[c]
			if v == "" {
				v = "not available"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", humanizeColumn(c), v))
		}
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString("\n")
	}
	return b.String()
}

func rawRows(rows []store.Row) string {
	var b strings.Builder
	for _, row := range rows {
		for k, v := range row {
			fmt.Fprintf(&b, "%s=%s ", k, v)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// humanizeColumn turns ORDER_DATE into "Order Date".
func humanizeColumn(c string) string {
	words := strings.Split(strings.ToLower(c), "_")
	for i, w := range words {
		if w == "id" {
			words[i] = "ID"
			continue
		}
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
