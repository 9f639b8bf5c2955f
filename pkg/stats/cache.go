package stats

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// RawNameProperty holds the department name as spelled in the geometry
// source; the name field itself holds the normalized key.
const RawNameProperty = "NOMBRE_FUENTE"

// Derived columns, only present in exported collections.
const (
	LogCountProperty    = "LOG_CANTIDAD"
	TopQuartileProperty = "TOP25"
)

// LoadIfExists reads a cached dataset. found is false when there is no
// file at path; a file that exists but cannot be decoded is an error.
func LoadIfExists(path string, schema Schema) (ds *Dataset, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache %s: %w", path, err)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, true, fmt.Errorf("decode cache %s: %w", path, err)
	}

	ds = &Dataset{Schema: schema}
	for i, f := range fc.Features {
		r, err := schema.regionFromFeature(f)
		if err != nil {
			return nil, true, fmt.Errorf("cache %s feature %d: %w", path, i, err)
		}
		ds.Regions = append(ds.Regions, r)
	}

	return ds, true, nil
}

func (s Schema) regionFromFeature(f *geojson.Feature) (*Region, error) {
	mp, err := asMultiPolygon(f.Geometry)
	if err != nil {
		return nil, err
	}

	key, ok := f.Properties[s.NameField].(string)
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrMissingColumn, s.NameField)
	}

	r := &Region{
		Key:        key,
		Name:       key,
		Attributes: make(map[string]string, len(f.Properties)),
		Geometry:   mp,
	}

	for k, v := range f.Properties {
		switch k {
		case s.CountColumn:
			n, err := propertyFloat(k, v)
			if err != nil {
				return nil, err
			}
			if n != nil {
				c := int64(math.Round(*n))
				r.ProgramCount = &c
			}
		case s.AverageColumn:
			if r.AverageEnrollment, err = propertyFloat(k, v); err != nil {
				return nil, err
			}
		case RawNameProperty:
			if name, ok := v.(string); ok {
				r.Name = name
			}
		case LogCountProperty, TopQuartileProperty:
		default:
			if v != nil {
				r.Attributes[k] = fmt.Sprint(v)
			}
		}
	}
	r.Attributes[s.NameField] = r.Name

	return r, nil
}

func propertyFloat(name string, v interface{}) (*float64, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	}
	return nil, fmt.Errorf("property %s: unexpected value %v", name, v)
}

// FeatureCollection converts the dataset into GeoJSON features. The
// derived columns are included when withDerived is set.
func (ds *Dataset) FeatureCollection(withDerived bool) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(ds.Regions))}

	for _, r := range ds.Regions {
		props := make(map[string]interface{}, len(r.Attributes)+5)
		for k, v := range r.Attributes {
			props[k] = v
		}
		props[ds.NameField] = r.Key
		props[RawNameProperty] = r.Name

		props[ds.CountColumn] = nil
		if r.ProgramCount != nil {
			props[ds.CountColumn] = *r.ProgramCount
		}
		props[ds.AverageColumn] = nil
		if r.AverageEnrollment != nil {
			props[ds.AverageColumn] = *r.AverageEnrollment
		}

		if withDerived {
			props[LogCountProperty] = nil
			if r.LogCount != nil {
				props[LogCountProperty] = *r.LogCount
			}
			props[TopQuartileProperty] = r.TopQuartile
		}

		f := &geojson.Feature{Properties: props}
		if r.Geometry != nil {
			f.Geometry = r.Geometry
		}
		fc.Features = append(fc.Features, f)
	}

	return fc
}

// Save writes the dataset to path as a GeoJSON feature collection. The
// file is replaced atomically.
func (ds *Dataset) Save(path string) error {
	js, err := json.Marshal(ds.FeatureCollection(false))
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	return writeFileAtomic(path, js)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Fingerprint hashes the contents of the given files. Shapefile
// companions (.dbf, .shx) are included when present.
func Fingerprint(paths ...string) (string, error) {
	h := sha256.New()

	for _, p := range paths {
		files := []string{p}
		if strings.EqualFold(filepath.Ext(p), ".shp") {
			base := strings.TrimSuffix(p, filepath.Ext(p))
			for _, ext := range []string{".dbf", ".shx"} {
				if _, err := os.Stat(base + ext); err == nil {
					files = append(files, base+ext)
				}
			}
		}

		for _, name := range files {
			f, err := os.Open(name)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(h, "%s\x00", filepath.Base(name))
			_, err = io.Copy(h, f)
			f.Close()
			if err != nil {
				return "", err
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintPath is the sidecar file recording the source fingerprint
// a cache was built from.
func FingerprintPath(cachePath string) string {
	return cachePath + ".sha256"
}

func saveFingerprint(cachePath, sum string) error {
	return writeFileAtomic(FingerprintPath(cachePath), []byte(sum+"\n"))
}

func loadFingerprint(cachePath string) (string, error) {
	data, err := os.ReadFile(FingerprintPath(cachePath))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
