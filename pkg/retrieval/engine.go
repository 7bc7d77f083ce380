// Package retrieval ranks a persona's memories against focal-point queries.
//
// The engine combines three signals per candidate node: recency (exponential
// decay over chronological rank), relevance (cosine similarity between the
// focal point's embedding and the node's embedding), and importance (the
// node's poignancy). Each signal is min-max normalized across the candidate
// set before the weighted sum, so no single signal dominates just because its
// natural range is wider.
package retrieval

import (
	"context"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/simulacra-labs/simulacra-go/pkg/embedder"
	"github.com/simulacra-labs/simulacra-go/pkg/memory"
)

// DefaultDecay is the per-rank recency decay applied when the config leaves
// it unset. The most recent node scores decay^0, the next decay^1, and so on;
// older memories approach zero weight but never vanish.
const DefaultDecay = 0.995

// Weights holds the non-negative combination weights for the three scoring
// components. Zero-value weights are replaced by the equal-weighting default.
type Weights struct {
	// Recency weights the chronological-rank decay component.
	Recency float64

	// Relevance weights the cosine-similarity component.
	Relevance float64

	// Importance weights the normalized-poignancy component.
	Importance float64
}

// EqualWeights is the default policy: all three components count equally.
func EqualWeights() Weights {
	return Weights{Recency: 1, Relevance: 1, Importance: 1}
}

// Config tunes the retrieval engine. The exact decay constant and weight
// values are configuration, not a hard contract; the defaults here are the
// documented baseline the tests assume.
type Config struct {
	// Decay is the recency decay constant in (0, 1). Defaults to DefaultDecay.
	Decay float64

	// Weights are the component combination weights. Defaults to EqualWeights.
	Weights Weights
}

// Engine scores and selects memory nodes for focal-point queries.
//
// An Engine is stateless apart from its configuration and may be shared by
// any number of personas; the only side effect of retrieval is updating the
// selected nodes' last-accessed timestamps in the queried store.
type Engine struct {
	embedder embedder.Provider
	decay    float64
	weights  Weights

	// now is the clock used for last-accessed bookkeeping.
	now func() time.Time
}

// NewEngine creates a retrieval engine using the given embedding provider.
func NewEngine(provider embedder.Provider, cfg Config) *Engine {
	decay := cfg.Decay
	if decay <= 0 || decay >= 1 {
		decay = DefaultDecay
	}
	w := cfg.Weights
	if w.Recency <= 0 && w.Relevance <= 0 && w.Importance <= 0 {
		w = EqualWeights()
	}
	return &Engine{
		embedder: provider,
		decay:    decay,
		weights:  w,
		now:      time.Now,
	}
}

// Retrieve ranks every node in the store against each focal point and
// returns the topN highest-scoring nodes per focal point, highest combined
// score first. Each focal point is evaluated independently over all nodes in the
// store, never a filtered subset.
//
// If the store holds fewer than topN nodes, all of them are returned; the
// result is never padded. An empty store yields an empty sequence for every
// focal point without calling the embedding provider.
//
// Every returned node has its last-accessed timestamp updated in the store.
func (e *Engine) Retrieve(ctx context.Context, store *memory.Store, focalPoints []string, topN int) (map[string][]*memory.Node, error) {
	out := make(map[string][]*memory.Node, len(focalPoints))

	nodes := store.All()
	if len(nodes) == 0 {
		for _, fp := range focalPoints {
			out[fp] = nil
		}
		return out, nil
	}

	queryEmbeddings, err := e.embedder.EmbedBatch(ctx, focalPoints)
	if err != nil {
		return nil, err
	}

	recency := recencyScores(nodes, e.decay)
	importance := importanceScores(nodes)

	for i, fp := range focalPoints {
		relevance := relevanceScores(nodes, queryEmbeddings[i])
		selected := e.selectTop(nodes, recency, relevance, importance, topN)
		now := e.now()
		for _, n := range selected {
			store.MarkAccessed(n.ID, now)
		}
		out[fp] = selected
	}
	return out, nil
}

// selectTop combines the per-node component scores and picks the topN nodes.
// Ties break toward the more recent node, then the lower id.
func (e *Engine) selectTop(nodes []*memory.Node, recency, relevance, importance []float64, topN int) []*memory.Node {
	recencyN := minMaxNormalize(recency)
	relevanceN := minMaxNormalize(relevance)
	importanceN := minMaxNormalize(importance)

	type scored struct {
		node  *memory.Node
		score float64
	}
	ranked := make([]scored, len(nodes))
	for i, n := range nodes {
		ranked[i] = scored{
			node: n,
			score: e.weights.Recency*recencyN[i] +
				e.weights.Relevance*relevanceN[i] +
				e.weights.Importance*importanceN[i],
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.node.CreatedAt.Equal(b.node.CreatedAt) {
			return a.node.CreatedAt.After(b.node.CreatedAt)
		}
		return a.node.ID < b.node.ID
	})

	if topN > len(ranked) {
		topN = len(ranked)
	}
	selected := make([]*memory.Node, 0, topN)
	for _, r := range ranked[:topN] {
		selected = append(selected, r.node)
	}
	return selected
}

// recencyScores assigns decay^rank to each node, where the most recent node
// has rank 0. Scores are monotonically non-increasing with chronological
// rank: nodes is in insertion order, so the last element is the freshest.
func recencyScores(nodes []*memory.Node, decay float64) []float64 {
	scores := make([]float64, len(nodes))
	for i := range nodes {
		rank := len(nodes) - 1 - i
		scores[i] = math.Pow(decay, float64(rank))
	}
	return scores
}

// relevanceScores computes the cosine similarity between the query embedding
// and each node's embedding. Nodes with a missing or mismatched embedding
// score zero.
func relevanceScores(nodes []*memory.Node, query []float64) []float64 {
	scores := make([]float64, len(nodes))
	queryNorm := floats.Norm(query, 2)
	if queryNorm == 0 {
		return scores
	}
	for i, n := range nodes {
		if len(n.Embedding) != len(query) {
			continue
		}
		nodeNorm := floats.Norm(n.Embedding, 2)
		if nodeNorm == 0 {
			continue
		}
		scores[i] = floats.Dot(query, n.Embedding) / (queryNorm * nodeNorm)
	}
	return scores
}

// importanceScores normalizes each node's poignancy against the maximum
// poignancy in the candidate set, so the most poignant node scores 1.0.
func importanceScores(nodes []*memory.Node) []float64 {
	scores := make([]float64, len(nodes))
	var max float64
	for _, n := range nodes {
		if n.Poignancy > max {
			max = n.Poignancy
		}
	}
	if max == 0 {
		return scores
	}
	for i, n := range nodes {
		scores[i] = n.Poignancy / max
	}
	return scores
}

// minMaxNormalize rescales values to [0, 1]. A flat component (max == min)
// carries no ranking information and maps to all zeros.
func minMaxNormalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(values))
	if max == min {
		return out
	}
	span := max - min
	for i, v := range values {
		out[i] = (v - min) / span
	}
	return out
}
