package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// GeometrySource describes the boundary file to read.
type GeometrySource struct {
	Path      string
	NameField string
	// Encoding of the DBF attribute table: "utf-8", "latin1" or "windows-1252".
	Encoding string
}

// ReadGeometry reads one feature per department from a shapefile or a
// GeoJSON feature collection, depending on the file extension.
func ReadGeometry(src GeometrySource) ([]*GeoFeature, error) {
	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".geojson", ".json":
		return readGeoJSON(src)
	default:
		return readShapefile(src)
	}
}

func attributeDecoder(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	}
	return nil, fmt.Errorf("unsupported attribute encoding '%s'", name)
}

func readShapefile(src GeometrySource) ([]*GeoFeature, error) {
	// shp.Open does not distinguish a missing file from a broken one.
	if _, err := os.Stat(src.Path); err != nil {
		return nil, fmt.Errorf("open geometry file: %w", err)
	}

	dec, err := attributeDecoder(src.Encoding)
	if err != nil {
		return nil, err
	}

	r, err := shp.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", src.Path, err)
	}
	defer r.Close()

	fields := r.Fields()
	nameIdx := -1
	for i, f := range fields {
		if f.String() == src.NameField {
			nameIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("%s: %w '%s'", src.Path, ErrMissingColumn, src.NameField)
	}

	var out []*GeoFeature
	for r.Next() {
		n, shape := r.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, fmt.Errorf("%s: feature %d is %T, want polygon", src.Path, n, shape)
		}

		mp, err := multiPolygonFromParts(poly.Parts, poly.Points)
		if err != nil {
			return nil, fmt.Errorf("%s: feature %d: %w", src.Path, n, err)
		}

		attrs := make(map[string]string, len(fields))
		for k, f := range fields {
			v := strings.Trim(r.ReadAttribute(n, k), " \x00")
			if dec != nil {
				if v, err = dec.String(v); err != nil {
					return nil, fmt.Errorf("%s: feature %d field %s: %w", src.Path, n, f.String(), err)
				}
			}
			attrs[f.String()] = v
		}

		name := attrs[src.NameField]
		out = append(out, &GeoFeature{
			Name:       name,
			Key:        NormalizeKey(name),
			Attributes: attrs,
			Geometry:   mp,
		})
	}

	return out, nil
}

// multiPolygonFromParts groups shapefile rings into polygons. Outer rings
// are clockwise; counter-clockwise rings are holes of the last outer ring.
func multiPolygonFromParts(parts []int32, points []shp.Point) (*geom.MultiPolygon, error) {
	var polys [][][]geom.Coord

	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || start >= end {
			return nil, fmt.Errorf("invalid part %d [%d:%d]", i, start, end)
		}

		ring := make([]geom.Coord, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, geom.Coord{p.X, p.Y})
		}

		if signedArea(ring) > 0 && len(polys) > 0 {
			last := len(polys) - 1
			polys[last] = append(polys[last], ring)
			continue
		}
		polys = append(polys, [][]geom.Coord{ring})
	}

	return geom.NewMultiPolygon(geom.XY).SetCoords(polys)
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var a float64
	for i := 0; i+1 < len(ring); i++ {
		a += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return a / 2
}

func readGeoJSON(src GeometrySource) ([]*GeoFeature, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open geometry file: %w", err)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", src.Path, err)
	}

	out := make([]*GeoFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		mp, err := asMultiPolygon(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("%s: feature %d: %w", src.Path, i, err)
		}

		attrs := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			if v != nil {
				attrs[k] = fmt.Sprint(v)
			}
		}
		name, ok := attrs[src.NameField]
		if !ok {
			return nil, fmt.Errorf("%s: feature %d: %w '%s'", src.Path, i, ErrMissingColumn, src.NameField)
		}

		out = append(out, &GeoFeature{
			Name:       name,
			Key:        NormalizeKey(name),
			Attributes: attrs,
			Geometry:   mp,
		})
	}

	return out, nil
}

func asMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	switch g := g.(type) {
	case *geom.MultiPolygon:
		return g, nil
	case *geom.Polygon:
		return geom.NewMultiPolygon(g.Layout()).SetCoords([][][]geom.Coord{g.Coords()})
	case nil:
		return geom.NewMultiPolygon(geom.XY), nil
	}
	return nil, fmt.Errorf("unsupported geometry %T", g)
}
