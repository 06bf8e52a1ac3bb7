package policy

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/caresbot/caresbot/internal/core"
)

// Filter is one predicate of a structured query. Op is limited to the
// comparison set the query builder understands.
type Filter struct {
	Column string `json:"column"`
	Op     string `json:"op"` // "=", "!=", "<", "<=", ">", ">=", "LIKE"
	Value  string `json:"value"`
}

var allowedOps = map[string]bool{
	"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true, "LIKE": true,
}

// Query is a validated structured query: entity, columns, and the final
// filter set including the injected customer scope. Only the Engine produces
// these; backends refuse anything else.
type Query struct {
	Entity  string
	Columns []string
	Filters []Filter
	Limit   int
}

// Engine validates structured queries and response surfaces against the
// immutable rule set.
type Engine struct {
	rules   *RuleSet
	surface []surfacePattern
	logger  *log.Logger
}

type surfacePattern struct {
	token   string
	pattern *regexp.Regexp
}

// NewEngine creates an engine over the given rule set.
func NewEngine(rules *RuleSet) *Engine {
	return &Engine{
		rules:   rules,
		surface: compileSurfaceTokens(rules.DeniedSurfaceTokens),
		logger:  log.New(log.Writer(), "[POLICY] ", log.LstdFlags),
	}
}

// compileSurfaceTokens turns each denied token into a boundary-aware
// pattern: a token starting with a word character only matches at a word
// boundary, and a token ending with a non-word character must be followed
// by whitespace, punctuation, or the end of the reply. Plain substring
// matching flagged benign prose like "select *either* option".
func compileSurfaceTokens(tokens []string) []surfacePattern {
	out := make([]surfacePattern, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		p := regexp.QuoteMeta(strings.ToLower(t))
		if isWordByte(t[0]) {
			p = `\b` + p
		}
		if !isWordByte(t[len(t)-1]) {
			p += `(?:\W|$)`
		}
		out = append(out, surfacePattern{token: t, pattern: regexp.MustCompile("(?i)" + p)})
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Rules exposes the rule set for prompt rendering.
func (e *Engine) Rules() *RuleSet { return e.rules }

// ValidateStructuredQuery checks entity, columns, and filters against the
// allow-lists and returns the executable query with the customer-scoping
// predicate injected. customerID is the session's bound identity; it is
// supplied by the orchestrator, never taken from model-generated filters.
// Any model-supplied predicate on the scope column is dropped rather than
// trusted. Violations are returned, never repaired.
func (e *Engine) ValidateStructuredQuery(entity string, columns []string, filters []Filter, limit int, customerID string) (*Query, error) {
	entity = strings.ToLower(strings.TrimSpace(entity))
	rule, ok := e.rules.Entities[entity]
	if !ok {
		return nil, &core.PolicyViolation{
			Kind:   core.ViolationQueryShape,
			Entity: entity,
			Detail: "entity is not allow-listed",
		}
	}

	allowed := make(map[string]bool, len(rule.Columns))
	for _, c := range rule.Columns {
		allowed[c] = true
	}

	if len(columns) == 0 {
		return nil, &core.PolicyViolation{
			Kind:   core.ViolationQueryShape,
			Entity: entity,
			Detail: "no columns requested",
		}
	}
	norm := make([]string, 0, len(columns))
	for _, c := range columns {
		c = strings.ToUpper(strings.TrimSpace(c))
		if !allowed[c] {
			e.logger.Printf("rejected query on %s: column %s outside allow-list", entity, c)
			return nil, &core.PolicyViolation{
				Kind:   core.ViolationQueryShape,
				Entity: entity,
				Detail: fmt.Sprintf("column %s is not allow-listed", c),
			}
		}
		norm = append(norm, c)
	}

	out := make([]Filter, 0, len(filters)+1)
	for _, f := range filters {
		col := strings.ToUpper(strings.TrimSpace(f.Column))
		if !allowed[col] {
			e.logger.Printf("rejected query on %s: filter column %s outside allow-list", entity, col)
			return nil, &core.PolicyViolation{
				Kind:   core.ViolationQueryShape,
				Entity: entity,
				Detail: fmt.Sprintf("filter column %s is not allow-listed", col),
			}
		}
		op := strings.ToUpper(strings.TrimSpace(f.Op))
		if op == "" {
			op = "="
		}
		if !allowedOps[op] {
			return nil, &core.PolicyViolation{
				Kind:   core.ViolationQueryShape,
				Entity: entity,
				Detail: fmt.Sprintf("operator %q is not allowed", f.Op),
			}
		}
		if rule.CustomerScoped && col == rule.ScopeColumn {
			// The scope predicate is injected below; whatever the model sent
			// for it is not trusted.
			continue
		}
		out = append(out, Filter{Column: col, Op: op, Value: f.Value})
	}

	if rule.CustomerScoped {
		if customerID == "" {
			return nil, &core.PolicyViolation{
				Kind:   core.ViolationQueryShape,
				Entity: entity,
				Detail: "no bound customer identity for customer-scoped entity",
			}
		}
		out = append(out, Filter{Column: rule.ScopeColumn, Op: "=", Value: customerID})
	}

	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return &Query{Entity: entity, Columns: norm, Filters: out, Limit: limit}, nil
}

// ValidateResponseSurface rejects answers containing backend-internal
// vocabulary. This is the final guard before any answer leaves the
// orchestrator.
func (e *Engine) ValidateResponseSurface(text string) error {
	for _, sp := range e.surface {
		if sp.pattern.MatchString(text) {
			e.logger.Printf("rejected response surface: contains %q", sp.token)
			return &core.PolicyViolation{
				Kind:   core.ViolationResponseSurface,
				Detail: fmt.Sprintf("reply contains internal vocabulary %q", sp.token),
			}
		}
	}
	return nil
}
