package stats

import (
	"io"
	"math"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Printer formats numbers the way they are written in Colombia.
func Printer() *message.Printer {
	return message.NewPrinter(language.LatinAmericanSpanish)
}

// Info writes a short summary of the dataset.
func (ds *Dataset) Info(w io.Writer) {
	var matched, withAvg, top int
	var total int64
	for _, r := range ds.Regions {
		if r.ProgramCount != nil {
			matched++
			total += *r.ProgramCount
		}
		if r.AverageEnrollment != nil {
			withAvg++
		}
		if r.TopQuartile {
			top++
		}
	}

	p := Printer()
	p.Fprintf(w, `
	Regions            : %d
	With program count : %d
	With average       : %d
	Programs total     : %d
	Top 25%% cutoff     : %.2f
	Top 25%% regions    : %d
	`, len(ds.Regions), matched, withAvg, total, ds.QuartileCutoff, top)
	p.Fprintln(w, "")
}

// RankBy selects the value regions are ranked by.
type RankBy int

const (
	ByProgramCount RankBy = iota
	ByAverageEnrollment
)

func (b RankBy) value(r *Region) (float64, bool) {
	switch b {
	case ByAverageEnrollment:
		if r.AverageEnrollment != nil {
			return *r.AverageEnrollment, true
		}
	default:
		if r.ProgramCount != nil {
			return float64(*r.ProgramCount), true
		}
	}
	return math.NaN(), false
}

// Ranked returns the regions sorted by the given value, highest first.
// Regions without a value come last in input order.
func (ds *Dataset) Ranked(by RankBy) []*Region {
	sorted := make([]*Region, len(ds.Regions))
	copy(sorted, ds.Regions)

	sort.SliceStable(sorted, func(i, j int) bool {
		vi, oki := by.value(sorted[i])
		vj, okj := by.value(sorted[j])
		if oki != okj {
			return oki
		}
		return vi > vj
	})
	return sorted
}

// PrintRanking writes the regions ranked by the given value.
func (ds *Dataset) PrintRanking(w io.Writer, by RankBy) {
	p := Printer()

	for i, r := range ds.Ranked(by) {
		v, ok := by.value(r)
		if !ok {
			p.Fprintf(w, "%02d. %-32s  --  %12s\n", i+1, r.Name, "-")
			continue
		}
		mark := ""
		if r.TopQuartile {
			mark = " *"
		}
		if by == ByAverageEnrollment {
			p.Fprintf(w, "%02d. %-32s  --  %12.1f%s\n", i+1, r.Name, v, mark)
		} else {
			p.Fprintf(w, "%02d. %-32s  --  %12.f%s\n", i+1, r.Name, v, mark)
		}
	}
}
