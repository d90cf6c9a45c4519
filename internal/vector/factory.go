package vector

import "fmt"

// MatcherType names a best-match strategy.
type MatcherType string

const (
	// MatcherLinear scans every topic. Good for collections up to a few thousand topics.
	MatcherLinear MatcherType = "linear"
)

// NewMatcher creates a matcher of the specified type. An empty type selects linear.
func NewMatcher(matcherType string) (Matcher, error) {
	switch MatcherType(matcherType) {
	case "", MatcherLinear:
		return NewLinearMatcher(), nil
	default:
		return nil, fmt.Errorf("unknown matcher type: %s", matcherType)
	}
}
