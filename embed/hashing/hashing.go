// Package hashing implements a deterministic local embedder using
// feature hashing (the hashing trick). Tokens are hashed into a
// fixed-size vector, so no vocabulary, corpus pass, or external
// service is needed. Quality is well below a learned model; it exists
// so ingestion and retrieval work standalone and stay reproducible.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 256

// tokenPattern matches runs of letters or digits in Latin-script text.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Embedder hashes tokens into a fixed-size L2-normalized vector.
// Identical text always yields an identical vector. Safe for
// concurrent use.
type Embedder struct {
	dimensions int
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithDimensions sets the vector size.
func WithDimensions(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.dimensions = n
		}
	}
}

func New(opts ...Option) *Embedder {
	e := &Embedder{dimensions: DefaultDimensions}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed computes one vector per input text. It never fails and
// ignores ctx beyond the interface contract; embedding is pure
// in-process computation.
func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = e.embedOne(t)
	}
	return vectors, nil
}

func (e *Embedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimensions)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		idx := int(h.Sum32()) % e.dimensions
		if idx < 0 {
			idx += e.dimensions
		}
		// Second hash decides the sign, which keeps hash collisions
		// from only ever inflating a bucket.
		if h.Sum32()&0x10000 != 0 {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}
	normalize(vec)
	return vec
}

// tokenize splits text into lowercased word tokens, emitting CJK
// characters as unigrams and bigrams since they carry no word
// boundaries.
func tokenize(text string) []string {
	var tokens []string
	for _, match := range tokenPattern.FindAllString(text, -1) {
		runes := []rune(match)

		var latin []rune
		var prevCJK rune
		flushLatin := func() {
			if len(latin) > 0 {
				tokens = append(tokens, strings.ToLower(string(latin)))
				latin = nil
			}
		}
		for _, r := range runes {
			if unicode.Is(unicode.Han, r) {
				flushLatin()
				tokens = append(tokens, string(r))
				if prevCJK != 0 {
					tokens = append(tokens, string([]rune{prevCJK, r}))
				}
				prevCJK = r
				continue
			}
			prevCJK = 0
			latin = append(latin, r)
		}
		flushLatin()
	}
	return tokens
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
