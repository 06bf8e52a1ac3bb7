// Package knowledge is the semantic-retrieval capability backend: top-k
// policy passages for a free-form query. Passages are opaque text; their
// internal structure is never parsed. With no embedding client configured,
// retrieval degrades to keyword scoring instead of failing.
package knowledge

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/caresbot/caresbot/internal/core"
	"github.com/caresbot/caresbot/internal/store"
	"github.com/caresbot/caresbot/internal/tools"
)

// Passage is one retrieved policy passage.
type Passage struct {
	Content string
	Source  string
	Score   float64
}

// Retriever scores the policy chunk collection against a query.
type Retriever struct {
	DB       *store.DB
	Embedder core.EmbeddingClient // nil disables vector scoring
	logger   *log.Logger
}

// NewRetriever creates the retriever. embedder may be nil.
func NewRetriever(db *store.DB, embedder core.EmbeddingClient) *Retriever {
	return &Retriever{
		DB:       db,
		Embedder: embedder,
		logger:   log.New(log.Writer(), "[KNOWLEDGE] ", log.LstdFlags),
	}
}

// Retrieve returns up to k passages ordered by relevance. An empty result
// means nothing was deemed relevant; the caller must treat that as
// "policy not found", never guess.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = 8
	}
	chunks, err := r.DB.AllPolicyChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	scored := r.scoreByEmbedding(ctx, query, chunks)
	if scored == nil {
		scored = scoreByKeywords(query, chunks)
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	out := make([]Passage, 0, k)
	for _, p := range scored {
		if p.Score <= 0 {
			break
		}
		out = append(out, p)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// scoreByEmbedding returns nil when vector scoring is not possible (no
// embedder, no stored vectors, or the embed call failed) so the caller can
// fall back.
func (r *Retriever) scoreByEmbedding(ctx context.Context, query string, chunks []store.PolicyChunk) []Passage {
	if r.Embedder == nil {
		return nil
	}
	qv, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Printf("query embedding failed, falling back to keywords: %v", err)
		return nil
	}
	var scored []Passage
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		cv, err := DeserializeEmbedding(c.Embedding)
		if err != nil {
			continue
		}
		scored = append(scored, Passage{
			Content: c.Content,
			Source:  c.Source,
			Score:   CosineSimilarity(qv, cv),
		})
	}
	if len(scored) == 0 {
		return nil
	}
	return scored
}

// scoreByKeywords counts query-term hits per chunk. Crude, but it keeps the
// backend answering when no embedding model is configured.
func scoreByKeywords(query string, chunks []store.PolicyChunk) []Passage {
	terms := tokenize(query)
	scored := make([]Passage, 0, len(chunks))
	for _, c := range chunks {
		lower := strings.ToLower(c.Content)
		score := 0.0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				score += 1
			}
		}
		scored = append(scored, Passage{Content: c.Content, Source: c.Source, Score: score})
	}
	return scored
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?:;\"'()")
		if len(f) >= 3 { // skip stopword-sized tokens
			out = append(out, f)
		}
	}
	return out
}

// Register adds the semantic-retrieval tool to the registry.
func (r *Retriever) Register(reg *tools.Registry, k int) error {
	return reg.Register(&tools.Descriptor{
		Name:        "search_policies",
		Description: "Answer questions about company policies (return, refund, replacement, warranty, shipping) from internal policy knowledge.",
		Capability:  core.CapSemanticRetrieval,
		ReadOnly:    true,
		Params: map[string]tools.Param{
			"query": {Type: "string", Required: true, Description: "The policy question to look up."},
		},
		Handler: func(ctx context.Context, req tools.Request) (tools.Result, error) {
			passages, err := r.Retrieve(ctx, tools.StringArg(req.Args, "query"), k)
			if err != nil {
				return tools.Result{}, err
			}
			return tools.Result{
				Normalized: NormalizePassages(passages),
				Raw:        rawPassages(passages),
			}, nil
		},
	})
}

// NormalizePassages renders passages as plain text for the model.
func NormalizePassages(passages []Passage) string {
	if len(passages) == 0 {
		return "No relevant policy information was found."
	}
	var b strings.Builder
	b.WriteString("Relevant policy information:\n")
	for _, p := range passages {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(p.Content))
		b.WriteString("\n")
	}
	return b.String()
}

func rawPassages(passages []Passage) string {
	var b strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&b, "score=%.4f source=%s %s\n", p.Score, p.Source, p.Content)
	}
	return b.String()
}
