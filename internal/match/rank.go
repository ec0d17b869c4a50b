package match

import (
	"sort"
	"time"
)

// Scored is one pool member with its similarity to the query.
type Scored struct {
	ID      string
	Score   float64
	Recency *time.Time // nil sorts after every known time
}

// Rank orders items by score descending, then recency descending. The sort is
// stable, so items equal on both keys keep their pool order. A positive topK
// truncates the result; the input slice is not modified.
func Rank(items []Scored, topK int) []Scored {
	out := make([]Scored, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return recency(out[i]).After(recency(out[j]))
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func recency(s Scored) time.Time {
	if s.Recency == nil {
		return time.Time{}
	}
	return *s.Recency
}

// Dot is the similarity of two unit vectors. ok is false when the dimensions
// differ.
func Dot(a, b []float32) (score float64, ok bool) {
	if len(a) != len(b) {
		return 0, false
	}
	for i := range a {
		score += float64(a[i]) * float64(b[i])
	}
	return score, true
}
