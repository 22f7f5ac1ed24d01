// Package ranking scores content by votes decayed over age, so fresh and
// popular questions surface above old ones with a high count.
package ranking

import (
	"math"
	"sort"
	"time"
)

// A Rankable exposes just enough to be ranked: a score and an age.
type Rankable interface {
	GetScore() int64
	Age() time.Time
}

// Rank computes the decayed score of an item at referenceTime. Higher
// gravity makes scores decay faster; timebaseInHours flattens the decay for
// young items.
func Rank(item Rankable, gravity float64, timebaseInHours int64, referenceTime time.Time) float64 {
	hours := referenceTime.Sub(item.Age()).Hours()
	s := item.GetScore()

	return float64(s-1) / math.Pow((float64(timebaseInHours)+hours), gravity)
}

// Sort orders items in place by descending rank. The sort is stable so
// equally ranked items keep their storage order.
func Sort[T Rankable](items []T, gravity float64, timebaseInHours int64, referenceTime time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return Rank(items[i], gravity, timebaseInHours, referenceTime) > Rank(items[j], gravity, timebaseInHours, referenceTime)
	})
}
