package embedding

import (
	"context"
	"fmt"
	"strings"
)

// Set is the request-scoped mapping from text to vector. It is built once per
// alignment request and never shared across requests.
type Set struct {
	index   map[string]int
	vectors []Vector
	dim     int
}

// Build embeds the distinct texts among texts through p, batchSize at a time.
// Empty or whitespace-only texts, a short or inconsistent provider response,
// and provider errors all fail with services.ErrEmbeddingUnavailable.
func Build(ctx context.Context, p Provider, texts []string, batchSize int) (*Set, error) {
	set := &Set{index: make(map[string]int, len(texts))}
	unique := make([]string, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, unavailable("build", "cannot embed empty text", fmt.Errorf("empty text"))
		}
		if _, ok := set.index[text]; ok {
			continue
		}
		set.index[text] = len(unique)
		unique = append(unique, text)
	}
	if len(unique) == 0 {
		return set, nil
	}
	if batchSize <= 0 {
		batchSize = len(unique)
	}

	set.vectors = make([]Vector, 0, len(unique))
	for start := 0; start < len(unique); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, unavailable("build", "embedding cancelled", err)
		}
		end := min(start+batchSize, len(unique))
		batch := unique[start:end]
		vectors, err := p.Embed(ctx, batch)
		if err != nil {
			return nil, unavailable("build", "provider "+p.Name()+" failed", err)
		}
		if len(vectors) != len(batch) {
			return nil, unavailable("build", "short provider response",
				fmt.Errorf("provider %s returned %d vectors for %d texts", p.Name(), len(vectors), len(batch)))
		}
		for i, vec := range vectors {
			if len(vec) == 0 {
				return nil, unavailable("build", "empty vector", fmt.Errorf("provider %s returned an empty vector for %q", p.Name(), batch[i]))
			}
			if set.dim == 0 {
				set.dim = len(vec)
			} else if len(vec) != set.dim {
				return nil, unavailable("build", "inconsistent dimensions",
					fmt.Errorf("vector for %q has %d dimensions, expected %d", batch[i], len(vec), set.dim))
			}
			set.vectors = append(set.vectors, vec)
		}
	}
	return set, nil
}

// Lookup returns the vector for text.
func (s *Set) Lookup(text string) (Vector, bool) {
	if s == nil {
		return nil, false
	}
	idx, ok := s.index[text]
	if !ok || idx >= len(s.vectors) {
		return nil, false
	}
	return s.vectors[idx], true
}

// Len is the number of distinct texts held.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vectors)
}

// Dim is the vector dimension, or 0 for an empty set.
func (s *Set) Dim() int {
	if s == nil {
		return 0
	}
	return s.dim
}
