package stats

import "github.com/twpayne/go-geom"

// Region is one department: its boundary joined with the program
// statistics reported for it. Count and Average are nil when the
// statistics source had no row for the department.
type Region struct {
	Name       string
	Key        string
	Attributes map[string]string
	Geometry   *geom.MultiPolygon `json:"-"`

	ProgramCount      *int64
	AverageEnrollment *float64

	LogCount    *float64
	TopQuartile bool
}

// Schema names the properties a dataset is written with: the geometry
// name attribute (holding the join key) and the two statistics columns.
type Schema struct {
	NameField     string
	CountColumn   string
	AverageColumn string
}

// Dataset is the merged collection of regions in geometry-source order.
// It is built once per process and only read afterwards.
type Dataset struct {
	Schema
	Regions        []*Region
	QuartileCutoff float64
}

// StatRow is one row of the statistics table.
type StatRow struct {
	Name              string
	Key               string
	ProgramCount      *int64
	AverageEnrollment *float64
}

// GeoFeature is one feature of the geometry source.
type GeoFeature struct {
	Name       string
	Key        string
	Attributes map[string]string
	Geometry   *geom.MultiPolygon
}

// Find returns the region with the given normalized key.
func (ds *Dataset) Find(key string) *Region {
	for _, r := range ds.Regions {
		if r.Key == key {
			return r
		}
	}
	return nil
}

// Counts returns the program counts of all regions, nil where missing.
func (ds *Dataset) Counts() []*float64 {
	out := make([]*float64, len(ds.Regions))
	for i, r := range ds.Regions {
		if r.ProgramCount != nil {
			v := float64(*r.ProgramCount)
			out[i] = &v
		}
	}
	return out
}

// Bounds returns the combined bounding box of all region geometries.
func (ds *Dataset) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, r := range ds.Regions {
		if r.Geometry != nil && !r.Geometry.Empty() {
			b.Extend(r.Geometry)
		}
	}
	return b
}
