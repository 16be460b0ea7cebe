package embeddings

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestLexicalEmbedderIsNormalizedAndDeterministic(t *testing.T) {
	e := NewLexicalEmbedder(0)
	if e.Dimensions() != 256 {
		t.Fatalf("Dimensions() = %d, want 256", e.Dimensions())
	}

	vecs, err := e.Embed(context.Background(), []string{"Outlook is not opening", "Outlook is not opening", ""})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i, v := range vecs {
		if n := math.Sqrt(cosine(v, v)); math.Abs(n-1) > 1e-5 {
			t.Errorf("vector %d has norm %f", i, n)
		}
	}
	if c := cosine(vecs[0], vecs[1]); math.Abs(c-1) > 1e-5 {
		t.Errorf("identical texts should have similarity 1, got %f", c)
	}
}

func TestLexicalEmbedderRanksOverlap(t *testing.T) {
	e := NewLexicalEmbedder(512)
	vecs, _ := e.Embed(context.Background(), []string{
		"Outlook not opening",
		"my outlook is not opening since this morning",
		"printer out of toner",
	})
	related := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("expected related text to score higher: related=%f unrelated=%f", related, unrelated)
	}
}
