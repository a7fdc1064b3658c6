// Package feature holds the in-memory vector data model shared by every
// source backend and the analysis engine: geometries with attribute rows,
// grouped into collections that carry their spatial reference.
package feature

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Feature is one geometric entity together with its attribute row.
// Attribute values arrive as strings (DBF), numbers (GeoJSON, PostGIS)
// or nil, depending on the backend; the accessors coerce on read.
type Feature struct {
	Geom  geom.T
	Attrs map[string]any
}

// String returns the named attribute as a trimmed string. Missing or nil
// attributes return "". DBF text fields are NUL-padded and census sources
// mark missing values with "*"; both are stripped.
func (f *Feature) String(key string) string {
	v, ok := f.Attrs[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.Trim(s, "\x00* ")
	}
	return fmt.Sprintf("%v", v)
}

// Number coerces the named attribute to a float64. Missing, nil or empty
// values coerce to 0. A non-empty value that does not parse as a number
// returns an error naming the offending value.
func (f *Feature) Number(key string) (float64, error) {
	v, ok := f.Attrs[key]
	if !ok || v == nil {
		return 0, nil
	}

	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case []byte:
		return f.parseNumber(key, string(n))
	case string:
		return f.parseNumber(key, n)
	default:
		return 0, eris.Errorf("feature: attribute %q has unsupported type %T", key, v)
	}
}

func (f *Feature) parseNumber(key, raw string) (float64, error) {
	s := strings.Trim(raw, "\x00* ")
	if s == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Errorf("feature: attribute %q value %q is not numeric", key, s)
	}
	return parsed, nil
}

// Collection is an ordered set of features sharing one spatial reference.
// SR is nil when the source carried no usable CRS information.
type Collection struct {
	Name     string
	SR       *proj.SR
	Features []*Feature
}

// Len returns the number of features in the collection.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Points returns the representative point of every feature, in collection
// order. Point features return their own coordinates; everything else
// falls back to Centroid.
func (c *Collection) Points() ([]geom.Coord, error) {
	pts := make([]geom.Coord, 0, len(c.Features))
	for i, f := range c.Features {
		pt, err := Centroid(f.Geom)
		if err != nil {
			return nil, eris.Wrapf(err, "feature: representative point of feature %d", i)
		}
		pts = append(pts, pt)
	}
	return pts, nil
}
