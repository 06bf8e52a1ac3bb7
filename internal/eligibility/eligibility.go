// Package eligibility combines a structured fact (order and delivery dates)
// with a semantic fact (the policy window) into a deterministic
// return/refund decision. The decision is always derived from both lookups;
// the language capability can narrate it but never assert it.
package eligibility

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caresbot/caresbot/internal/core"
	"github.com/caresbot/caresbot/internal/policy"
	"github.com/caresbot/caresbot/internal/tools"
	"github.com/caresbot/caresbot/internal/tools/knowledge"
	"github.com/caresbot/caresbot/internal/tools/orders"
)

// Decisions.
const (
	Eligible   = "eligible"
	Ineligible = "ineligible"
	Unknown    = "unknown"
)

// Request identifies the order and intent to evaluate, scoped to the bound
// customer identity.
type Request struct {
	OrderID    string
	CustomerID string
	Intent     string // "return", "refund", or "replacement"
}

// Result is the derived decision plus the supporting facts used.
type Result struct {
	Decision         string
	Reason           string
	OrderDate        string
	DeliveryDate     string
	ElapsedDays      int
	PolicyWindowDays int
	PolicyExcerpt    string
}

// Checker computes eligibility from the two capability backends.
type Checker struct {
	Orders    *orders.Backend
	Knowledge *knowledge.Retriever
	RetrieveK int
	Now       func() time.Time // injectable clock for tests
	logger    *log.Logger
}

// NewChecker creates a checker.
func NewChecker(ob *orders.Backend, kr *knowledge.Retriever, retrieveK int) *Checker {
	return &Checker{
		Orders:    ob,
		Knowledge: kr,
		RetrieveK: retrieveK,
		Now:       time.Now,
		logger:    log.New(log.Writer(), "[ELIGIBILITY] ", log.LstdFlags),
	}
}

// Compute runs both mandatory lookups and derives the decision. Neither
// input is ever guessed: a missing order row or an unfindable policy window
// yields Unknown, never Eligible or Ineligible.
func (c *Checker) Compute(ctx context.Context, req Request) (Result, error) {
	intent := req.Intent
	if intent == "" {
		intent = "return"
	}

	rows, err := c.Orders.Query(ctx, "orders",
		[]string{"ORDER_ID", "PRODUCT_ID", "ORDER_DATE", "DELIVERY_DATE", "STATUS"},
		[]policy.Filter{{Column: "ORDER_ID", Op: "=", Value: req.OrderID}},
		1, req.CustomerID)
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{Decision: Unknown, Reason: "order not found"}, nil
	}
	row := rows[0]

	deliveryDate, err := parseDate(row["DELIVERY_DATE"])
	if err != nil {
		return Result{
			Decision:  Unknown,
			Reason:    "order has not been delivered yet",
			OrderDate: row["ORDER_DATE"],
		}, nil
	}

	category := c.productCategory(ctx, row["PRODUCT_ID"], req.CustomerID)
	query := intent + " policy"
	if category != "" {
		query += " for " + category
	}
	passages, err := c.Knowledge.Retrieve(ctx, query, c.RetrieveK)
	if err != nil {
		return Result{}, err
	}
	window, excerpt, ok := extractWindowDays(passages)
	if !ok {
		c.logger.Printf("no policy window found for order %s (query %q)", req.OrderID, query)
		return Result{
			Decision:     Unknown,
			Reason:       "policy not found",
			OrderDate:    row["ORDER_DATE"],
			DeliveryDate: row["DELIVERY_DATE"],
		}, nil
	}

	elapsed := calendarDaysSince(deliveryDate, c.Now())
	res := Result{
		OrderDate:        row["ORDER_DATE"],
		DeliveryDate:     row["DELIVERY_DATE"],
		ElapsedDays:      elapsed,
		PolicyWindowDays: window,
		PolicyExcerpt:    excerpt,
	}
	if elapsed <= window {
		res.Decision = Eligible
		res.Reason = fmt.Sprintf("delivered %d day(s) ago, within the %d-day window", elapsed, window)
	} else {
		res.Decision = Ineligible
		res.Reason = fmt.Sprintf("delivered %d day(s) ago, outside the %d-day window", elapsed, window)
	}
	return res, nil
}

// productCategory is best effort; an unknown category just broadens the
// policy query.
func (c *Checker) productCategory(ctx context.Context, productID, customerID string) string {
	if productID == "" {
		return ""
	}
	rows, err := c.Orders.Query(ctx, "products",
		[]string{"CATEGORY"},
		[]policy.Filter{{Column: "PRODUCT_ID", Op: "=", Value: productID}},
		1, customerID)
	if err != nil || len(rows) == 0 {
		return ""
	}
	return rows[0]["CATEGORY"]
}

var windowRe = regexp.MustCompile(`(\d{1,3})[ -]day|within\s+(\d{1,3})\s+days|(\d{1,3})\s+(?:calendar\s+)?days`)

// extractWindowDays finds the first day-count in the retrieved passages,
// scanning in relevance order.
func extractWindowDays(passages []knowledge.Passage) (int, string, bool) {
	for _, p := range passages {
		m := windowRe.FindStringSubmatch(strings.ToLower(p.Content))
		if m == nil {
			continue
		}
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			n, err := strconv.Atoi(g)
			if err == nil && n > 0 {
				return n, strings.TrimSpace(p.Content), true
			}
		}
	}
	return 0, "", false
}

// parseDate accepts the stored naive calendar date (YYYY-MM-DD, optionally
// with a time suffix). No timezone conversion; dates match the source of
// truth.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(s) > 10 {
		s = s[:10]
	}
	return time.Parse("2006-01-02", s)
}

// calendarDaysSince floors to whole days between two naive calendar dates.
func calendarDaysSince(from, now time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Register adds the fused eligibility tool to the registry.
func (c *Checker) Register(reg *tools.Registry) error {
	return reg.Register(&tools.Descriptor{
		Name:        "check_return_eligibility",
		Description: "Decide whether an order is eligible for return, refund, or replacement. Combines the order's delivery date with the applicable policy window. Always use this for eligibility questions; never guess dates or policies.",
		Capability:  core.CapDeterministicFused,
		ReadOnly:    true,
		Params: map[string]tools.Param{
			"order_id": {Type: "string", Required: true, Description: "The order to evaluate."},
			"intent":   {Type: "string", Enum: []string{"return", "refund", "replacement"}, Description: "What the customer wants to do (default return)."},
		},
		Handler: func(ctx context.Context, req tools.Request) (tools.Result, error) {
			res, err := c.Compute(ctx, Request{
				OrderID:    tools.StringArg(req.Args, "order_id"),
				CustomerID: req.CustomerID,
				Intent:     tools.StringArg(req.Args, "intent"),
			})
			if err != nil {
				return tools.Result{}, err
			}
			return tools.Result{Normalized: res.Describe(), Raw: fmt.Sprintf("%+v", res)}, nil
		},
	})
}

// Describe renders the result as plain text for the model.
func (r Result) Describe() string {
	switch r.Decision {
	case Unknown:
		return fmt.Sprintf("Eligibility could not be determined: %s.", r.Reason)
	case Eligible:
		return fmt.Sprintf("The order IS eligible: %s (delivered on %s).", r.Reason, r.DeliveryDate)
	default:
		return fmt.Sprintf("The order is NOT eligible: %s (delivered on %s).", r.Reason, r.DeliveryDate)
	}
}
