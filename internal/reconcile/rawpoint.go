package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawPoint is a point as it arrives from callers: either a JSON object
// (latitude/longitude, lat/lon, lat/lng, coordinates, ...) or a bare
// two-element array.
type RawPoint struct {
	obj map[string]any
	arr []any
}

// RawObject wraps an already-decoded object.
func RawObject(m map[string]any) RawPoint { return RawPoint{obj: m} }

// RawPair wraps a bare pair.
func RawPair(a, b any) RawPoint { return RawPoint{arr: []any{a, b}} }

// LatLonPoint builds a raw object in the canonical shape.
func LatLonPoint(id, title string, lat, lon float64) RawPoint {
	m := map[string]any{"latitude": lat, "longitude": lon}
	if id != "" {
		m["id"] = id
	}
	if title != "" {
		m["title"] = title
	}
	return RawPoint{obj: m}
}

// IsZero reports whether nothing was decoded.
func (r RawPoint) IsZero() bool { return r.obj == nil && r.arr == nil }

func (r *RawPoint) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case map[string]any:
		r.obj = t
	case []any:
		r.arr = t
	default:
		return errors.New("raw point must be an object or an array")
	}
	return nil
}

func (r RawPoint) MarshalJSON() ([]byte, error) {
	if r.arr != nil {
		return json.Marshal(r.arr)
	}
	if r.obj == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.obj)
}

// ID returns the identifier carried by the raw point, if any.
func (r RawPoint) ID() string {
	for _, k := range []string{"id", "markerId", "marker_id"} {
		if s := asString(r.obj[k]); s != "" {
			return s
		}
	}
	return ""
}

// Title returns the display title carried by the raw point, if any.
func (r RawPoint) Title() string {
	for _, k := range []string{"title", "name"} {
		if s := asString(r.obj[k]); s != "" {
			return s
		}
	}
	return ""
}

// Text returns a string field of an object point, or "".
func (r RawPoint) Text(key string) string {
	if r.obj == nil {
		return ""
	}
	return asString(r.obj[key])
}

// WithID returns a copy of an object point carrying the given id.
// Pairs are promoted to objects so the id can travel with them.
func (r RawPoint) WithID(id string) RawPoint {
	m := make(map[string]any, len(r.obj)+1)
	for k, v := range r.obj {
		m[k] = v
	}
	if r.arr != nil {
		m["coordinates"] = r.arr
	}
	m["id"] = id
	return RawPoint{obj: m}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// asFinite coerces numbers and numeric strings; NaN, Inf and empty values fail.
func asFinite(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
