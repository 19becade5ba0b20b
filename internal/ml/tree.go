package ml

import (
	"math"
	"sort"
)

// Node 회귀 트리 노드 (Left < 0 이면 리프)
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// Tree CART 회귀 트리 (x <= Threshold 이면 왼쪽)
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// PredictRow 한 행 예측
func (t *Tree) PredictRow(row []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for t.Nodes[i].Left >= 0 {
		n := t.Nodes[i]
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

type treeConfig struct {
	maxDepth       int
	minSamplesLeaf int
	lambda         float64
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

type treeBuilder struct {
	x          [][]float64
	y          []float64
	cfg        treeConfig
	edges      [][]float64 // 특징별 구간 경계, nil 이면 정확 분할
	importance []float64
	nodes      []Node
}

// buildTree idx 행으로 트리 학습, 분할 이득은 importance에 누적
func buildTree(x [][]float64, y []float64, idx []int, cfg treeConfig, edges [][]float64, importance []float64) *Tree {
	if cfg.minSamplesLeaf < 1 {
		cfg.minSamplesLeaf = 1
	}
	b := &treeBuilder{x: x, y: y, cfg: cfg, edges: edges, importance: importance}
	b.grow(idx, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	n := len(idx)
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Value: sum / (float64(n) + b.cfg.lambda)})

	if b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth {
		return id
	}
	if n < 2*b.cfg.minSamplesLeaf {
		return id
	}

	s, ok := b.bestSplit(idx, sum)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.importance[s.feature] += s.gain

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Feature = s.feature
	b.nodes[id].Threshold = s.threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

func (b *treeBuilder) bestSplit(idx []int, sum float64) (split, bool) {
	n := len(idx)
	lambda := b.cfg.lambda
	parent := sum * sum / (float64(n) + lambda)

	best := split{gain: 1e-12}
	found := false
	sorted := make([]int, n)

	for f := range b.x[idx[0]] {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })

		var sumL float64
		for k := 0; k < n-1; k++ {
			sumL += b.y[sorted[k]]
			nL, nR := k+1, n-k-1
			if nL < b.cfg.minSamplesLeaf || nR < b.cfg.minSamplesLeaf {
				continue
			}
			xa, xb := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if xa == xb {
				continue
			}

			threshold := xa + (xb-xa)/2
			if threshold >= xb {
				threshold = xa
			}
			if b.edges != nil {
				ba, bb := binOf(b.edges[f], xa), binOf(b.edges[f], xb)
				if ba == bb {
					continue
				}
				threshold = b.edges[f][ba]
			}

			sumR := sum - sumL
			gain := sumL*sumL/(float64(nL)+lambda) + sumR*sumR/(float64(nR)+lambda) - parent
			if gain > best.gain {
				best = split{feature: f, threshold: threshold, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

// binOf x가 속한 구간 (첫 번째 edge >= x 의 인덱스)
func binOf(edges []float64, x float64) int {
	return sort.SearchFloat64s(edges, x)
}

// histogramEdges 특징별 분위 경계 (최대 maxBins 구간)
func histogramEdges(x [][]float64, maxBins int) [][]float64 {
	if len(x) == 0 || maxBins < 2 {
		return nil
	}
	nf := len(x[0])
	edges := make([][]float64, nf)
	col := make([]float64, len(x))
	for f := 0; f < nf; f++ {
		for i := range x {
			col[i] = x[i][f]
		}
		sort.Float64s(col)
		uniq := dedupSorted(col)

		var e []float64
		if len(uniq) <= maxBins {
			for i := 0; i+1 < len(uniq); i++ {
				e = append(e, uniq[i]+(uniq[i+1]-uniq[i])/2)
			}
		} else {
			for k := 1; k < maxBins; k++ {
				pos := int(math.Round(float64(k) * float64(len(uniq)-1) / float64(maxBins)))
				e = append(e, uniq[pos])
			}
			e = dedupSorted(e)
		}
		edges[f] = e
	}
	return edges
}

func dedupSorted(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for i, x := range v {
		if i == 0 || x != v[i-1] {
			out = append(out, x)
		}
	}
	return out
}

// normalize 합이 1이 되도록 정규화 (합이 0이면 그대로)
func normalize(v []float64) []float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	out := make([]float64, len(v))
	if total <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}
