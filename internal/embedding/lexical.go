package embedding

import (
	"context"
	"hash/fnv"

	"subalign/internal/textutil"
)

const defaultLexicalDimensions = 256

// Lexical hashes word tokens and character trigrams into a fixed number of
// signed buckets. It needs no model or network and is meant for offline runs
// and tests; it only captures surface overlap, not cross-lingual meaning.
type Lexical struct {
	dims int
}

// NewLexical returns a lexical provider with dims buckets.
func NewLexical(dims int) *Lexical {
	if dims <= 0 {
		dims = defaultLexicalDimensions
	}
	return &Lexical{dims: dims}
}

func (l *Lexical) Name() string { return "lexical" }

func (l *Lexical) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = l.embedOne(text)
	}
	return out, nil
}

func (l *Lexical) embedOne(text string) Vector {
	vec := make(Vector, l.dims)
	for _, token := range textutil.Tokenize(text) {
		l.add(vec, "w:"+token, 1)
	}
	for _, gram := range textutil.CharNGrams(text, 3) {
		l.add(vec, "c:"+gram, 0.5)
	}
	textutil.Normalize(vec)
	return vec
}

func (l *Lexical) add(vec Vector, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(l.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}
