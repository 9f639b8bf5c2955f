package stats

import (
	"math"
	"sort"
)

// TopQuartileLevel is the percentile a department's program count must
// exceed to be flagged as top quartile.
const TopQuartileLevel = 0.75

// Quantile returns the p-quantile of the non-nil values, interpolating
// linearly between the two closest ranks at position (n-1)*p. It
// returns NaN when there are no values.
func Quantile(values []*float64, p float64) float64 {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil && !math.IsNaN(*v) {
			xs = append(xs, *v)
		}
	}
	if len(xs) == 0 {
		return math.NaN()
	}
	sort.Float64s(xs)

	h := float64(len(xs)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(xs) {
		return xs[len(xs)-1]
	}
	return xs[i] + (h-lo)*(xs[i+1]-xs[i])
}

// LogCount is ln(count), or nil when count is missing or not positive.
func LogCount(count *int64) *float64 {
	if count == nil || *count <= 0 {
		return nil
	}
	v := math.Log(float64(*count))
	return &v
}

// Derive fills the log-count and top-quartile columns of every region.
// Regions without a count are never top quartile.
func (ds *Dataset) Derive() {
	ds.QuartileCutoff = Quantile(ds.Counts(), TopQuartileLevel)

	for _, r := range ds.Regions {
		r.LogCount = LogCount(r.ProgramCount)
		r.TopQuartile = r.ProgramCount != nil && float64(*r.ProgramCount) > ds.QuartileCutoff
	}
}
