package vector

import "context"

// Candidate is a vector that can be matched against a query.
type Candidate struct {
	ID     string
	Vector []float32
}

// Match is the best candidate found for a query. Index is the candidate's
// position in the slice passed to BestMatch.
type Match struct {
	ID    string
	Index int
	Score float64
}

// Matcher finds the single best candidate whose similarity to the query is at
// least threshold. It is the seam for swapping the linear scan for an ANN index.
type Matcher interface {
	BestMatch(ctx context.Context, query []float32, candidates []Candidate, threshold float64) (Match, bool, error)
}

// LinearMatcher scans every candidate with cosine similarity.
// Suitable for the small topic collections a single user produces.
type LinearMatcher struct{}

// NewLinearMatcher returns a brute-force matcher.
func NewLinearMatcher() *LinearMatcher {
	return &LinearMatcher{}
}

// BestMatch returns the highest-scoring candidate at or above threshold. On ties
// the earliest candidate wins; candidates with a different dimension are skipped.
func (m *LinearMatcher) BestMatch(ctx context.Context, query []float32, candidates []Candidate, threshold float64) (Match, bool, error) {
	best := Match{Index: -1}
	found := false
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Match{}, false, err
		}
		if !Comparable(c.Vector, query) {
			continue
		}
		score := CosineSimilarity(c.Vector, query)
		if score < threshold {
			continue
		}
		if !found || score > best.Score {
			best = Match{ID: c.ID, Index: i, Score: score}
			found = true
		}
	}
	return best, found, nil
}
