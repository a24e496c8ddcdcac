package matching

import (
	"math/bits"
	"sort"

	"listinglens/features"
)

// MatchPair is a correspondence between one descriptor in set A and its
// nearest descriptor in set B
type MatchPair struct {
	QueryIdx     int
	TrainIdx     int
	Distance     int
	CrossChecked bool
}

// MatchResult is the ordered sequence of match pairs for one comparison,
// sorted ascending by distance
type MatchResult []MatchPair

// HammingDistance counts the differing bits between two binary descriptors.
// Descriptors of unequal length are compared over their common prefix.
func HammingDistance(a, b features.Descriptor) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	distance := 0
	for i := 0; i < n; i++ {
		distance += bits.OnesCount8(a[i] ^ b[i])
	}
	return distance
}

// nearest finds the descriptor in set closest to d under Hamming distance.
// Ties keep the first-encountered index so matching stays deterministic.
func nearest(d features.Descriptor, set features.FeatureSet) (int, int) {
	bestIdx := 0
	bestDist := HammingDistance(d, set[0].Descriptor)

	for i := 1; i < len(set); i++ {
		dist := HammingDistance(d, set[i].Descriptor)
		if dist < bestDist {
			bestIdx = i
			bestDist = dist
		}
	}
	return bestIdx, bestDist
}

// Matcher pairs descriptors between two feature sets by brute-force nearest
// neighbor search under Hamming distance
type Matcher struct {
	crossCheck bool
}

// NewMatcher creates a matcher; with crossCheck enabled only mutually
// nearest pairs survive, which suppresses many-to-one spurious matches
func NewMatcher(crossCheck bool) *Matcher {
	return &Matcher{crossCheck: crossCheck}
}

// Match pairs every descriptor in setA with its nearest descriptor in setB.
// Either side being empty yields an empty result, not an error.
func (m *Matcher) Match(setA, setB features.FeatureSet) MatchResult {
	if len(setA) == 0 || len(setB) == 0 {
		return MatchResult{}
	}

	result := make(MatchResult, 0, len(setA))
	for i := range setA {
		j, dist := nearest(setA[i].Descriptor, setB)

		pair := MatchPair{QueryIdx: i, TrainIdx: j, Distance: dist}
		if m.crossCheck {
			// Require the chosen setB descriptor to pick the original
			// setA descriptor when searched back the other way
			back, _ := nearest(setB[j].Descriptor, setA)
			if back != i {
				continue
			}
			pair.CrossChecked = true
		}

		result = append(result, pair)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Distance < result[j].Distance
	})

	return result
}

// Evaluation is the decision over one match result
type Evaluation struct {
	Accepted bool
	Strength int
}

// Evaluator applies the minimum-correspondence acceptance rule.
// MinMatches is a documented policy value (config default 11).
type Evaluator struct {
	MinMatches int
}

// Evaluate accepts a match result when at least MinMatches pairs survived.
// Strength is the surviving pair count, exposed for diagnostics and graded
// scoring extensions.
func (e Evaluator) Evaluate(result MatchResult) Evaluation {
	return Evaluation{
		Accepted: len(result) >= e.MinMatches,
		Strength: len(result),
	}
}
