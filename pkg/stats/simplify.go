package stats

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
	"github.com/twpayne/go-geom"
)

// minRingCoords is a closed triangle.
const minRingCoords = 4

// Simplify reduces the vertex count of every ring of mp with the
// Douglas-Peucker algorithm. A ring that would fall below a closed
// triangle is left as it is, so no polygon disappears.
func Simplify(mp *geom.MultiPolygon, tolerance float64) (*geom.MultiPolygon, error) {
	if mp == nil || tolerance <= 0 {
		return mp, nil
	}

	dp := simplify.DouglasPeucker(tolerance)
	coords := mp.Coords()
	for i, poly := range coords {
		for j, ring := range poly {
			coords[i][j] = simplifyRing(dp, ring)
		}
	}

	return geom.NewMultiPolygon(mp.Layout()).SetCoords(coords)
}

// simplifyRing simplifies the planar part of ring and returns the input
// coordinates that survived, so Z and M values are kept.
func simplifyRing(dp *simplify.DouglasPeuckerSimplifier, ring []geom.Coord) []geom.Coord {
	if len(ring) <= minRingCoords {
		return ring
	}

	r := make(orb.Ring, len(ring))
	for i, c := range ring {
		r[i] = orb.Point{c[0], c[1]}
	}

	kept := dp.Ring(r)
	if len(kept) < minRingCoords {
		return ring
	}

	out := make([]geom.Coord, 0, len(kept))
	for _, c := range ring {
		if k := len(out); k < len(kept) && c[0] == kept[k][0] && c[1] == kept[k][1] {
			out = append(out, c)
		}
	}
	return out
}
