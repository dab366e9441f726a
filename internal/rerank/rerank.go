// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rerank scores candidate papers by their similarity to a reference
// corpus, weighting recently added corpus entries more heavily.
//
// For a corpus of n entries sorted newest first, entry i gets the weight
// 1/(1+log10(i+1)), normalized to sum to 1. A candidate's score is ten times
// the weighted sum of its cosine similarities to every corpus entry.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pdiddy/paper-digest/internal/embedding"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// ErrEmptyCorpus is returned when there is no reference corpus to rank against.
var ErrEmptyCorpus = errors.New("reference corpus is empty")

// scoreScale maps the weighted similarity onto the digest's rating range.
const scoreScale = 10

// Reranker ranks candidates with one embedding provider for both sides.
type Reranker struct {
	Embedder embedding.Provider
}

// Rerank assigns each candidate its score and returns the candidates sorted
// by score, highest first. Equal scores keep their input order.
func (r *Reranker) Rerank(ctx context.Context, candidates []*types.Paper, corpus []types.CorpusEntry) ([]*types.Paper, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}
	if len(candidates) == 0 {
		return []*types.Paper{}, nil
	}
	for _, p := range candidates {
		if _, ok := p.Score(); ok {
			return nil, fmt.Errorf("paper %s: %w", p.ID, types.ErrScoreAssigned)
		}
	}

	sorted := SortCorpus(corpus)
	corpusTexts := make([]string, len(sorted))
	for i, e := range sorted {
		corpusTexts[i] = e.Abstract
	}
	candidateTexts := make([]string, len(candidates))
	for i, p := range candidates {
		candidateTexts[i] = p.Abstract
	}

	corpusVecs, err := r.Embedder.EmbedTexts(ctx, corpusTexts)
	if err != nil {
		return nil, fmt.Errorf("embedding corpus: %w", err)
	}
	if len(corpusVecs) != len(corpusTexts) {
		return nil, fmt.Errorf("embedding corpus: got %d vectors for %d entries", len(corpusVecs), len(corpusTexts))
	}
	candidateVecs, err := r.Embedder.EmbedTexts(ctx, candidateTexts)
	if err != nil {
		return nil, fmt.Errorf("embedding candidates: %w", err)
	}
	if len(candidateVecs) != len(candidateTexts) {
		return nil, fmt.Errorf("embedding candidates: got %d vectors for %d papers", len(candidateVecs), len(candidateTexts))
	}

	sim, err := SimilarityMatrix(candidateVecs, corpusVecs)
	if err != nil {
		return nil, err
	}
	weights := Weights(len(sorted))

	for i, p := range candidates {
		var s float64
		for j, w := range weights {
			s += sim[i][j] * w
		}
		if err := p.SetScore(s * scoreScale); err != nil {
			return nil, fmt.Errorf("paper %s: %w", p.ID, err)
		}
	}

	ranked := make([]*types.Paper, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, _ := ranked[i].Score()
		b, _ := ranked[j].Score()
		return a > b
	})
	return ranked, nil
}

// SortCorpus returns a copy of corpus ordered by Added, newest first.
// Entries added at the same instant keep their input order.
func SortCorpus(corpus []types.CorpusEntry) []types.CorpusEntry {
	sorted := make([]types.CorpusEntry, len(corpus))
	copy(sorted, corpus)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Added.After(sorted[j].Added)
	})
	return sorted
}

// Weights returns n non-negative recency weights summing to 1. Index 0 is
// the newest corpus entry and weighs the most.
func Weights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	w := make([]float64, n)
	var sum float64
	for i := range w {
		w[i] = 1 / (1 + math.Log10(float64(i+1)))
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// SimilarityMatrix returns the cosine similarity of every row of a against
// every row of b. All vectors must share one dimension. A zero vector has
// similarity 0 with everything.
func SimilarityMatrix(a, b [][]float32) ([][]float64, error) {
	dim := -1
	for _, set := range [][][]float32{a, b} {
		for _, v := range set {
			if dim < 0 {
				dim = len(v)
			} else if len(v) != dim {
				return nil, fmt.Errorf("embedding dimension mismatch: %d and %d", dim, len(v))
			}
		}
	}

	normsB := make([]float64, len(b))
	for j, v := range b {
		normsB[j] = norm(v)
	}

	out := make([][]float64, len(a))
	for i, u := range a {
		nu := norm(u)
		row := make([]float64, len(b))
		for j, v := range b {
			if nu == 0 || normsB[j] == 0 {
				continue
			}
			row[j] = dot(u, v) / (nu * normsB[j])
		}
		out[i] = row
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
