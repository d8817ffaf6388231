// Package stress classifies user utterances as stressed. Detection is a
// two-stage pipeline: a fixed regex pass over English and Spanish correction
// idioms, then an optional embedding-similarity pass against reference
// phrases when the caller supplies an embedding function.
package stress

import (
	"context"
	"math"
	"regexp"
	"sync"
)

// similarityThreshold is the minimum cosine similarity against any reference
// phrase for the semantic stage to report stress.
const similarityThreshold = 0.75

// EmbedFunc computes an embedding vector for a text. Implementations are
// injected by the host; any error is treated as "no semantic signal".
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Result is the outcome of a detection pass.
type Result struct {
	Detected  bool   `json:"detected"`
	Intensity int    `json:"intensity"`
	Method    string `json:"method"` // regex, semantic, or none
}

// stressPatterns cover correction, frustration, and "I already told you"
// idioms in English and Spanish.
var stressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(no|nope),?\s+(that'?s|that is|this is)\s+(wrong|incorrect|not\s)`),
	regexp.MustCompile(`(?i)\bthat'?s not what i (asked|meant|said|wanted)\b`),
	regexp.MustCompile(`(?i)\bi (already |just )?(told|said to|asked) you\b`),
	regexp.MustCompile(`(?i)\b(wrong|incorrect)\s+again\b`),
	regexp.MustCompile(`(?i)\bstop (doing|saying|suggesting) that\b`),
	regexp.MustCompile(`(?i)\bwhy (did|would|do) you keep\b`),
	regexp.MustCompile(`(?i)\bthis is (so )?frustrating\b`),
	regexp.MustCompile(`(?i)\bno es (lo que|eso)\b`),
	regexp.MustCompile(`(?i)\b(ya )?te (lo )?(dije|expliqu[eé]|ped[ií])\b`),
	regexp.MustCompile(`(?i)\best[áa]s? (mal|equivocado)\b`),
	regexp.MustCompile(`(?i)\botra vez\b.{0,30}\bmal\b`),
}

// referencePhrases anchor the semantic stage. They are embedded once per
// provider and cached.
var referencePhrases = []string{
	"No, that's wrong.",
	"That's not what I asked for.",
	"I already told you this.",
	"You're not listening to me.",
	"Stop, this is incorrect.",
}

// DetectRegex runs only the regex stage.
func DetectRegex(utterance string) bool {
	for _, p := range stressPatterns {
		if p.MatchString(utterance) {
			return true
		}
	}
	return false
}

// Detector runs the two-stage pipeline and caches reference-phrase
// embeddings keyed by provider. The cache holds one provider at a time; a
// provider change rebuilds it.
type Detector struct {
	mu          sync.Mutex
	providerKey string
	refVectors  [][]float32
}

// NewDetector creates a Detector with an empty embedding cache.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect classifies an utterance. The regex stage always runs; the semantic
// stage runs only when embed is non-nil and the regex stage found nothing.
// Embedding failures fall back to "not detected".
func (d *Detector) Detect(ctx context.Context, utterance string, embed EmbedFunc, providerKey string) Result {
	if DetectRegex(utterance) {
		return Result{Detected: true, Intensity: 3, Method: "regex"}
	}
	if embed == nil {
		return Result{Method: "none"}
	}

	refs, err := d.referenceVectors(ctx, embed, providerKey)
	if err != nil {
		return Result{Method: "none"}
	}
	input, err := embed(ctx, utterance)
	if err != nil {
		return Result{Method: "none"}
	}

	best := 0.0
	for _, ref := range refs {
		if sim := cosineSimilarity(input, ref); sim > best {
			best = sim
		}
	}
	if best > similarityThreshold {
		return Result{Detected: true, Intensity: 2, Method: "semantic"}
	}
	return Result{Method: "none"}
}

func (d *Detector) referenceVectors(ctx context.Context, embed EmbedFunc, providerKey string) ([][]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.refVectors != nil && d.providerKey == providerKey {
		return d.refVectors, nil
	}

	vectors := make([][]float32, 0, len(referencePhrases))
	for _, phrase := range referencePhrases {
		v, err := embed(ctx, phrase)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	d.refVectors = vectors
	d.providerKey = providerKey
	return vectors, nil
}

// cosineSimilarity is dot(a,b) / sqrt(|a|²·|b|²) with the denominator
// floored at 1 to avoid division by zero. Mismatched lengths score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA * normB)
	if denom < 1 {
		denom = 1
	}
	return dot / denom
}
