package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const defaultLexicalDims = 256

// LexicalEmbedder is an offline embedder that hashes lower-cased word
// unigrams and bigrams into a fixed-size, L2-normalized vector. Texts
// sharing words get a positive cosine similarity, which is enough for a
// small KB when no embedding provider is configured.
type LexicalEmbedder struct {
	dims int
}

// NewLexicalEmbedder returns a lexical embedder; dims <= 0 means 256.
func NewLexicalEmbedder(dims int) *LexicalEmbedder {
	if dims <= 0 {
		dims = defaultLexicalDims
	}
	return &LexicalEmbedder{dims: dims}
}

func (e *LexicalEmbedder) Name() string    { return "lexical" }
func (e *LexicalEmbedder) Dimensions() int { return e.dims }

func (e *LexicalEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *LexicalEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		vec[e.bucket(w)] += 1
		if i > 0 {
			vec[e.bucket(words[i-1]+" "+w)] += 0.5
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// chromem rejects zero vectors; give empty text a fixed direction.
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func (e *LexicalEmbedder) bucket(token string) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dims))
}
