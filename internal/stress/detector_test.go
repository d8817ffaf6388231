package stress

import (
	"context"
	"errors"
	"testing"
)

func TestDetectRegex(t *testing.T) {
	cases := []struct {
		utterance string
		want      bool
	}{
		{"no, that's wrong", true},
		{"No, that is wrong!", true},
		{"that's not what I asked", true},
		{"I already told you to use tabs", true},
		{"wrong again", true},
		{"no es lo que pedí", true},
		{"ya te lo dije", true},
		{"estás mal", true},
		{"great, thanks!", false},
		{"looks good to me", false},
		{"can you read this file?", false},
		{"", false},
	}
	for _, c := range cases {
		if got := DetectRegex(c.utterance); got != c.want {
			t.Errorf("DetectRegex(%q) = %v, want %v", c.utterance, got, c.want)
		}
	}
}

func TestDetectRegexResult(t *testing.T) {
	d := NewDetector()
	res := d.Detect(context.Background(), "no, that's wrong", nil, "")
	if !res.Detected || res.Intensity != 3 || res.Method != "regex" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDetectNoEmbedFunc(t *testing.T) {
	d := NewDetector()
	res := d.Detect(context.Background(), "hmm, interesting", nil, "")
	if res.Detected || res.Method != "none" {
		t.Fatalf("unexpected result %+v", res)
	}
}

// fixedEmbed returns a canned vector per text, counting calls.
func fixedEmbed(vectors map[string][]float32, calls *int) EmbedFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		*calls++
		if v, ok := vectors[text]; ok {
			return v, nil
		}
		return []float32{0, 1}, nil
	}
}

func TestDetectSemantic(t *testing.T) {
	// Reference phrases embed to (10,0); a similar input crosses the 0.75
	// threshold, an orthogonal one does not.
	vectors := make(map[string][]float32)
	for _, p := range referencePhrases {
		vectors[p] = []float32{10, 0}
	}
	vectors["you keep messing this up"] = []float32{10, 1}
	vectors["the weather is nice"] = []float32{0, 10}

	calls := 0
	embed := fixedEmbed(vectors, &calls)
	d := NewDetector()

	res := d.Detect(context.Background(), "you keep messing this up", embed, "prov-a")
	if !res.Detected || res.Intensity != 2 || res.Method != "semantic" {
		t.Fatalf("unexpected result %+v", res)
	}

	res = d.Detect(context.Background(), "the weather is nice", embed, "prov-a")
	if res.Detected {
		t.Fatalf("orthogonal input detected: %+v", res)
	}
}

func TestReferenceCachePerProvider(t *testing.T) {
	vectors := make(map[string][]float32)
	for _, p := range referencePhrases {
		vectors[p] = []float32{10, 0}
	}
	calls := 0
	embed := fixedEmbed(vectors, &calls)
	d := NewDetector()

	d.Detect(context.Background(), "hello there", embed, "prov-a")
	afterFirst := calls // references + input

	d.Detect(context.Background(), "hello again", embed, "prov-a")
	if calls != afterFirst+1 {
		t.Fatalf("expected cached references (1 extra call), got %d extra", calls-afterFirst)
	}

	// Provider change rebuilds the reference cache.
	d.Detect(context.Background(), "hello once more", embed, "prov-b")
	if calls != afterFirst+1+len(referencePhrases)+1 {
		t.Fatalf("expected cache rebuild for new provider, calls = %d", calls)
	}
}

func TestDetectEmbeddingErrorFallsBack(t *testing.T) {
	embed := func(_ context.Context, _ string) ([]float32, error) {
		return nil, errors.New("provider down")
	}
	d := NewDetector()
	res := d.Detect(context.Background(), "hmm, interesting", embed, "prov-a")
	if res.Detected || res.Method != "none" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Fatalf("length mismatch should score 0, got %v", got)
	}
	if got := cosineSimilarity([]float32{10, 0}, []float32{10, 0}); got < 0.999 {
		t.Fatalf("identical vectors should score ~1, got %v", got)
	}
	// Sub-unit vectors hit the denominator floor instead of dividing by a
	// tiny norm.
	if got := cosineSimilarity([]float32{0.1, 0}, []float32{0.1, 0}); got > 0.011 {
		t.Fatalf("expected floored denominator, got %v", got)
	}
	if got := cosineSimilarity(nil, nil); got != 0 {
		t.Fatalf("empty vectors should score 0, got %v", got)
	}
}
