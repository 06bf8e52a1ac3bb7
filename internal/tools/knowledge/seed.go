package knowledge

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// maxChunkRunes bounds a single seeded passage.
const maxChunkRunes = 1200

// Seed chunks the policy document at path into the collection. No-op when
// the collection already has chunks or the file does not exist. Embeddings
// are computed only when an embedder is configured; a failed embed stores
// the chunk without a vector rather than dropping it.
func (r *Retriever) Seed(ctx context.Context, path string) error {
	n, err := r.DB.CountPolicyChunks(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Printf("no policy document at %s; knowledge backend starts empty", path)
			return nil
		}
		return fmt.Errorf("reading policy document: %w", err)
	}

	chunks := ChunkDocument(string(data))
	for _, chunk := range chunks {
		var embedding []byte
		if r.Embedder != nil {
			if v, err := r.Embedder.Embed(ctx, chunk); err == nil {
				embedding, _ = SerializeEmbedding(v)
			} else {
				r.logger.Printf("embedding chunk failed, storing without vector: %v", err)
			}
		}
		if _, err := r.DB.InsertPolicyChunk(ctx, chunk, embedding, path); err != nil {
			return fmt.Errorf("storing policy chunk: %w", err)
		}
	}
	r.logger.Printf("seeded %d policy chunk(s) from %s", len(chunks), path)
	return nil
}

// ChunkDocument splits a policy document into passages on blank lines and
// headings, merging short paragraphs up to maxChunkRunes.
func ChunkDocument(doc string) []string {
	paragraphs := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n\n")
	var chunks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		startsSection := strings.HasPrefix(p, "#")
		if startsSection || len([]rune(current.String()))+len([]rune(p)) > maxChunkRunes {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()
	return chunks
}
