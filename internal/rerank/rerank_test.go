// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rerank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// lookupEmbedder maps each text to a fixed vector.
type lookupEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
	short   bool
}

func (e *lookupEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, e.vectors[t])
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *lookupEmbedder) ModelName() string { return "lookup" }

var (
	day0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	day1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func paper(id, abstract string) *types.Paper {
	return &types.Paper{ID: id, Abstract: abstract}
}

func ids(papers []*types.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.ID
	}
	return out
}

func TestWeights(t *testing.T) {
	for _, n := range []int{1, 2, 5, 100} {
		w := Weights(n)
		require.Len(t, w, n)
		var sum float64
		for i, x := range w {
			assert.GreaterOrEqual(t, x, 0.0)
			if i > 0 {
				assert.Less(t, x, w[i-1], "weights decrease with age")
			}
			sum += x
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
	assert.Equal(t, []float64{1}, Weights(1))
	assert.Nil(t, Weights(0))
}

func TestSimilarityMatrix(t *testing.T) {
	m, err := SimilarityMatrix(
		[][]float32{{1, 0}, {0, 0}},
		[][]float32{{2, 0}, {0, 3}, {-1, 0}},
	)
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.InDeltaSlice(t, []float64{1, 0, -1}, m[0], 1e-9)
	assert.Equal(t, []float64{0, 0, 0}, m[1], "zero vector scores 0")

	_, err = SimilarityMatrix([][]float32{{1, 0}}, [][]float32{{1, 0, 0}})
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestSortCorpus(t *testing.T) {
	corpus := []types.CorpusEntry{
		{Key: "old", Added: day0},
		{Key: "new", Added: day1},
		{Key: "old2", Added: day0},
	}
	sorted := SortCorpus(corpus)
	var keys []string
	for _, e := range sorted {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"new", "old", "old2"}, keys)
	assert.Equal(t, "old", corpus[0].Key, "input is not modified")
}

func TestRerank_NewestSimilarWins(t *testing.T) {
	emb := &lookupEmbedder{vectors: map[string][]float32{
		"recent topic": {1, 0},
		"old topic":    {0, 1},
		"like recent":  {1, 0},
		"like old":     {0, 1},
	}}
	r := &Reranker{Embedder: emb}

	corpus := []types.CorpusEntry{
		{Key: "A", Abstract: "old topic", Added: day0},
		{Key: "B", Abstract: "recent topic", Added: day1},
	}
	candidates := []*types.Paper{paper("p-old", "like old"), paper("p-new", "like recent")}

	ranked, err := r.Rerank(context.Background(), candidates, corpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-new", "p-old"}, ids(ranked))

	w := Weights(2)
	sNew, ok := ranked[0].Score()
	require.True(t, ok)
	sOld, ok := ranked[1].Score()
	require.True(t, ok)
	assert.InDelta(t, 10*w[0], sNew, 1e-6)
	assert.InDelta(t, 10*w[1], sOld, 1e-6)
	assert.Equal(t, 2, emb.calls)
}

func TestRerank_IdenticalScoresTen(t *testing.T) {
	emb := &lookupEmbedder{vectors: map[string][]float32{"x": {0.3, 0.4}}}
	r := &Reranker{Embedder: emb}

	corpus := []types.CorpusEntry{{Abstract: "x", Added: day0}, {Abstract: "x", Added: day1}, {Abstract: "x", Added: day1}}
	ranked, err := r.Rerank(context.Background(), []*types.Paper{paper("p", "x")}, corpus)
	require.NoError(t, err)
	s, _ := ranked[0].Score()
	assert.InDelta(t, 10.0, s, 1e-6)
}

func TestRerank_PreservesSetAndTies(t *testing.T) {
	emb := &lookupEmbedder{vectors: map[string][]float32{
		"c":    {1, 1},
		"same": {1, 0},
		"best": {1, 1},
	}}
	r := &Reranker{Embedder: emb}

	candidates := []*types.Paper{paper("t1", "same"), paper("top", "best"), paper("t2", "same"), paper("t3", "same")}
	ranked, err := r.Rerank(context.Background(), candidates, []types.CorpusEntry{{Abstract: "c", Added: day0}})
	require.NoError(t, err)
	assert.Equal(t, []string{"top", "t1", "t2", "t3"}, ids(ranked))
	assert.Equal(t, []string{"t1", "top", "t2", "t3"}, ids(candidates), "input slice order is untouched")
}

func TestRerank_Deterministic(t *testing.T) {
	emb := &lookupEmbedder{vectors: map[string][]float32{
		"a": {1, 2, 3}, "b": {3, 2, 1}, "c": {0, 1, 0}, "k1": {1, 1, 0}, "k2": {0, 1, 1},
	}}
	r := &Reranker{Embedder: emb}
	corpus := []types.CorpusEntry{{Abstract: "k1", Added: day0}, {Abstract: "k2", Added: day1}}

	run := func() ([]string, []float64) {
		ranked, err := r.Rerank(context.Background(), []*types.Paper{paper("a", "a"), paper("b", "b"), paper("c", "c")}, corpus)
		require.NoError(t, err)
		var scores []float64
		for _, p := range ranked {
			s, _ := p.Score()
			scores = append(scores, s)
		}
		return ids(ranked), scores
	}
	ids1, scores1 := run()
	ids2, scores2 := run()
	assert.Equal(t, ids1, ids2)
	assert.Equal(t, scores1, scores2)
	assert.Len(t, ids1, 3)
}

func TestRerank_EmptyInputs(t *testing.T) {
	emb := &lookupEmbedder{}
	r := &Reranker{Embedder: emb}

	_, err := r.Rerank(context.Background(), []*types.Paper{paper("p", "x")}, nil)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	ranked, err := r.Rerank(context.Background(), nil, []types.CorpusEntry{{Abstract: "x"}})
	require.NoError(t, err)
	assert.Empty(t, ranked)
	assert.NotNil(t, ranked)

	assert.Zero(t, emb.calls, "no embedding calls for empty inputs")
}

func TestRerank_Errors(t *testing.T) {
	corpus := []types.CorpusEntry{{Abstract: "k", Added: day0}}

	t.Run("provider error", func(t *testing.T) {
		boom := errors.New("boom")
		r := &Reranker{Embedder: &lookupEmbedder{err: boom}}
		_, err := r.Rerank(context.Background(), []*types.Paper{paper("p", "x")}, corpus)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("wrong vector count", func(t *testing.T) {
		r := &Reranker{Embedder: &lookupEmbedder{short: true, vectors: map[string][]float32{"k": {1}}}}
		_, err := r.Rerank(context.Background(), []*types.Paper{paper("p", "x")}, corpus)
		assert.ErrorContains(t, err, "vectors")
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		r := &Reranker{Embedder: &lookupEmbedder{vectors: map[string][]float32{"k": {1, 0}, "x": {1, 0, 0}}}}
		_, err := r.Rerank(context.Background(), []*types.Paper{paper("p", "x")}, corpus)
		assert.ErrorContains(t, err, "dimension mismatch")
	})

	t.Run("already scored", func(t *testing.T) {
		p := paper("p", "x")
		require.NoError(t, p.SetScore(1))
		r := &Reranker{Embedder: &lookupEmbedder{vectors: map[string][]float32{"k": {1}, "x": {1}}}}
		_, err := r.Rerank(context.Background(), []*types.Paper{p}, corpus)
		assert.ErrorIs(t, err, types.ErrScoreAssigned)
	})
}
