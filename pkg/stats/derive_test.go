package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datasetWithCounts(counts ...*int64) *Dataset {
	ds := &Dataset{}
	for _, c := range counts {
		ds.Regions = append(ds.Regions, &Region{ProgramCount: c})
	}
	return ds
}

func TestQuantile(t *testing.T) {
	vals := []*float64{float64p(10), float64p(20), float64p(30), float64p(1000)}
	assert.InDelta(t, 272.5, Quantile(vals, 0.75), 1e-9)
	assert.InDelta(t, 25, Quantile(vals, 0.5), 1e-9)
	assert.InDelta(t, 10, Quantile(vals, 0), 1e-9)
	assert.InDelta(t, 1000, Quantile(vals, 1), 1e-9)

	// Missing values are skipped.
	withNil := append([]*float64{nil, nil}, vals...)
	assert.InDelta(t, 272.5, Quantile(withNil, 0.75), 1e-9)

	assert.InDelta(t, 7, Quantile([]*float64{float64p(7)}, 0.75), 1e-9)
	assert.True(t, math.IsNaN(Quantile(nil, 0.75)))
	assert.True(t, math.IsNaN(Quantile([]*float64{nil}, 0.75)))
}

func TestLogCount(t *testing.T) {
	assert.Nil(t, LogCount(nil))
	assert.Nil(t, LogCount(int64p(0)))
	assert.Nil(t, LogCount(int64p(-3)))

	got := LogCount(int64p(1))
	require.NotNil(t, got)
	assert.Equal(t, 0.0, *got)

	got = LogCount(int64p(1000))
	require.NotNil(t, got)
	assert.InDelta(t, math.Log(1000), *got, 1e-12)
}

func TestDeriveTopQuartile(t *testing.T) {
	ds := datasetWithCounts(int64p(10), int64p(20), int64p(30), int64p(1000))
	ds.Derive()

	var flagged []int64
	for _, r := range ds.Regions {
		if r.TopQuartile {
			flagged = append(flagged, *r.ProgramCount)
		}
	}
	assert.Equal(t, []int64{1000}, flagged)
	assert.InDelta(t, 272.5, ds.QuartileCutoff, 1e-9)
}

func TestDeriveWithMissingCounts(t *testing.T) {
	ds := datasetWithCounts(nil, int64p(0), int64p(5), int64p(5), int64p(50), nil)
	ds.Derive()

	for _, r := range ds.Regions {
		if r.ProgramCount == nil || *r.ProgramCount <= 0 {
			assert.Nil(t, r.LogCount)
		} else {
			require.NotNil(t, r.LogCount)
			assert.InDelta(t, math.Log(float64(*r.ProgramCount)), *r.LogCount, 1e-12)
		}

		want := r.ProgramCount != nil && float64(*r.ProgramCount) > ds.QuartileCutoff
		assert.Equal(t, want, r.TopQuartile)
	}
	assert.False(t, ds.Regions[0].TopQuartile)
	assert.True(t, ds.Regions[4].TopQuartile)
}

func TestDeriveNoCounts(t *testing.T) {
	ds := datasetWithCounts(nil, nil)
	ds.Derive()

	assert.True(t, math.IsNaN(ds.QuartileCutoff))
	for _, r := range ds.Regions {
		assert.False(t, r.TopQuartile)
		assert.Nil(t, r.LogCount)
	}
}

func TestDeriveTiesAreNotFlagged(t *testing.T) {
	ds := datasetWithCounts(int64p(4), int64p(4), int64p(4), int64p(4))
	ds.Derive()

	for _, r := range ds.Regions {
		assert.False(t, r.TopQuartile)
	}
}
