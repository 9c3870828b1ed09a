package matching

import "strings"

const idBonusWeight = 0.3

// MatchCandidate pairs a probe name with the best entry found in a pool.
// Transient, never persisted.
type MatchCandidate struct {
	Key    string
	Score  float64
	Reason string
}

// Candidate is one pool entry the matcher can score against.
type Candidate struct {
	Key        string
	Name       string
	ExternalID string
}

type Matcher struct {
	splitter  *NameSplitter
	threshold float64
}

func NewMatcher(threshold float64) *Matcher {
	return &Matcher{
		splitter:  DefaultNameSplitter(),
		threshold: threshold,
	}
}

// NewMatcherWithSplitter allows swapping the name-splitting strategy.
func NewMatcherWithSplitter(threshold float64, splitter *NameSplitter) *Matcher {
	return &Matcher{splitter: splitter, threshold: threshold}
}

func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Normalize uppercases, collapses whitespace, splits concatenated names and
// applies nickname equivalences. Empty input stays empty.
func (m *Matcher) Normalize(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.Join(strings.Fields(n), " ")
	if n == "" {
		return ""
	}
	n = m.splitter.Split(n)
	n = applyNicknames(n)
	return n
}

// Score compares two names plus optional external ids. Equal non-empty ids
// short-circuit to 1.0 regardless of name content.
func (m *Matcher) Score(nameA, idA, nameB, idB string) float64 {
	if idA != "" && idA == idB {
		return 1.0
	}

	score := similarityRatio(m.Normalize(nameA), m.Normalize(nameB))

	// ids present but unequal still carry signal (typos in either doc)
	if idA != "" && idB != "" {
		score += similarityRatio(idA, idB) * idBonusWeight
	}
	if score > 1 {
		score = 1
	}
	return score
}

// BestMatch scans the pool for the highest-scoring candidate clearing the
// threshold. Ties keep the first-encountered entry.
func (m *Matcher) BestMatch(name, externalID string, pool []Candidate) *MatchCandidate {
	var best *MatchCandidate
	for _, c := range pool {
		score := m.Score(name, externalID, c.Name, c.ExternalID)
		if score < m.threshold {
			continue
		}
		if best == nil || score > best.Score {
			reason := "name_similarity"
			if externalID != "" && externalID == c.ExternalID {
				reason = "exact_id"
			}
			best = &MatchCandidate{Key: c.Key, Score: score, Reason: reason}
		}
	}
	return best
}

// similarityRatio is the Ratcliff-Obershelp ratio: 2*M / (len(a)+len(b))
// where M counts matching characters across recursively aligned common
// substrings. Two empty strings score 0, not 1, so blank names never match.
func similarityRatio(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return 2 * float64(matchingChars(a, b)) / float64(len(a)+len(b))
}

func matchingChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:ai], b[:bi]) +
		matchingChars(a[ai+size:], b[bi+size:])
}

func longestCommonSubstring(a, b string) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestSize {
					bestSize = cur[j]
					bestA = i - bestSize
					bestB = j - bestSize
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestA, bestB, bestSize
}
