// Package policy holds the invariant rules the orchestrator enforces no
// matter what the language capability decides: per-entity column allow-lists,
// mandatory customer scoping, and the response-surface guard.
package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EntityRule is the allow-list for one structured entity. A query referencing
// any column outside Columns is rejected before execution.
type EntityRule struct {
	Columns        []string `yaml:"columns"`
	JoinKeys       []string `yaml:"join_keys"`
	CustomerScoped bool     `yaml:"customer_scoped"`
	ScopeColumn    string   `yaml:"scope_column"`
}

// RuleSet is the immutable policy configuration, loaded once at startup.
type RuleSet struct {
	Entities map[string]EntityRule `yaml:"entities"`
	// DeniedSurfaceTokens are backend-internal vocabulary that must never
	// appear in a reply leaving the orchestrator.
	DeniedSurfaceTokens []string `yaml:"denied_surface_tokens"`
}

// DefaultRules mirrors the allow-lists the source system enforced in its
// prompt: ORDERS, PRODUCTS, CUSTOMERS, INVENTORY.
func DefaultRules() *RuleSet {
	return &RuleSet{
		Entities: map[string]EntityRule{
			"orders": {
				Columns: []string{
					"ORDER_ID", "CUSTOMER_ID", "PRODUCT_ID", "ORDER_DATE",
					"DELIVERY_DATE", "STATUS", "PAYMENT_METHOD",
					"SHIPPING_ADDRESS", "TOTAL_AMOUNT", "CREATED_AT",
				},
				JoinKeys:       []string{"CUSTOMERS.CUSTOMER_ID", "PRODUCTS.PRODUCT_ID"},
				CustomerScoped: true,
				ScopeColumn:    "CUSTOMER_ID",
			},
			"products": {
				Columns: []string{
					"PRODUCT_ID", "NAME", "BRAND", "CATEGORY", "SUB_CATEGORY",
					"DESCRIPTION", "SPECIFICATIONS", "PRICE", "RATING", "CREATED_AT",
				},
				JoinKeys: []string{
					"PRODUCTS.PRODUCT_ID", "INVENTORY.PRODUCT_ID",
					"ORDERS.PRODUCT_ID", "CUSTOMERS.CUSTOMER_ID",
				},
			},
			"customers": {
				Columns: []string{
					"CUSTOMER_ID", "NAME", "EMAIL", "PHONE", "CITY", "CREATED_AT",
				},
				JoinKeys:       []string{"ORDERS.CUSTOMER_ID"},
				CustomerScoped: true,
				ScopeColumn:    "CUSTOMER_ID",
			},
			"inventory": {
				Columns: []string{
					"PRODUCT_ID", "STOCK_QUANTITY", "WAREHOUSE", "UPDATED_AT",
				},
				JoinKeys: []string{"PRODUCTS.PRODUCT_ID"},
			},
		},
		DeniedSurfaceTokens: []string{
			"snowflake", "chromadb", "chroma db", "vector store", "embedding",
			"select *", "sql query", "traceback", "stack trace", "panic:",
			"database error", "tool_call",
		},
	}
}

// LoadRules returns the default rule set, overridden by the YAML file at
// path when path is non-empty. Overrides replace whole entities, they do not
// merge column by column.
func LoadRules(path string) (*RuleSet, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy rules: %w", err)
	}
	var override RuleSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing policy rules: %w", err)
	}
	for name, rule := range override.Entities {
		rules.Entities[strings.ToLower(name)] = rule
	}
	if len(override.DeniedSurfaceTokens) > 0 {
		rules.DeniedSurfaceTokens = override.DeniedSurfaceTokens
	}
	return rules, nil
}

// PromptSummary renders the allow-lists for the governed system prompt so
// the prompt shown to the model and the enforcement path share one source.
func (r *RuleSet) PromptSummary() string {
	var b strings.Builder
	for _, name := range []string{"orders", "products", "customers", "inventory"} {
		rule, ok := r.Entities[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "Entity %s, allowed columns: %s.", strings.ToUpper(name), strings.Join(rule.Columns, ", "))
		if len(rule.JoinKeys) > 0 {
			fmt.Fprintf(&b, " Allowed join keys: %s.", strings.Join(rule.JoinKeys, ", "))
		}
		if rule.CustomerScoped {
			fmt.Fprintf(&b, " Always scoped to the logged-in customer by %s.", rule.ScopeColumn)
		}
		b.WriteString("\n")
	}
	return b.String()
}
