package docstore

import (
	"math"
	"sort"
	"strings"
)

// EarthRadiusMiles converts a distance in miles into a spherical cap radius
// in radians.
const EarthRadiusMiles = 3963.0

// Match reports whether doc satisfies every condition. It is the reference
// semantics the database backends translate into their own query languages.
func Match(doc Document, filter []Condition) bool {
	for _, c := range filter {
		if !matchOne(doc, c) {
			return false
		}
	}
	return true
}

func matchOne(doc Document, c Condition) bool {
	v, ok := Lookup(doc, c.Field)
	if !ok || v == nil {
		return false
	}

	switch c.Op {
	case OpEq:
		return anyElement(v, func(e any) bool { return Equal(e, c.Value) })
	case OpIn:
		values, _ := c.Value.([]any)
		return anyElement(v, func(e any) bool {
			for _, want := range values {
				if Equal(e, want) {
					return true
				}
			}
			return false
		})
	case OpWithin:
		circle, ok := c.Value.(Circle)
		if !ok {
			return false
		}
		lng, lat, ok := PointCoordinates(v)
		if !ok {
			return false
		}
		return Haversine(lng, lat, circle.Lng, circle.Lat) <= circle.Radius
	}

	cmp, ok := Compare(v, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

func anyElement(v any, fn func(any) bool) bool {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if fn(e) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range t {
			if fn(e) {
				return true
			}
		}
		return false
	}
	return fn(v)
}

// PointCoordinates reads longitude and latitude from a GeoJSON point.
func PointCoordinates(v any) (lng, lat float64, ok bool) {
	var point Document
	switch t := v.(type) {
	case Document:
		point = t
	case map[string]any:
		point = t
	default:
		return 0, 0, false
	}

	var coords []float64
	switch c := point["coordinates"].(type) {
	case []float64:
		coords = c
	case []any:
		for _, e := range c {
			f, ok := ToFloat64(e)
			if !ok {
				return 0, 0, false
			}
			coords = append(coords, f)
		}
	}
	if len(coords) != 2 {
		return 0, 0, false
	}
	return coords[0], coords[1], true
}

// Point builds a GeoJSON point.
func Point(lng, lat float64) Document {
	return Document{"type": "Point", "coordinates": []any{lng, lat}}
}

// Haversine returns the central angle in radians between two coordinates
// given in degrees.
func Haversine(lng1, lat1, lng2, lat2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(a)))
}

// SortDocuments orders docs in place. Missing values sort first, as they do
// in MongoDB; ties keep their input order.
func SortDocuments(docs []Document, keys []Sort) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			c := compareForSort(docs[i], docs[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareForSort(a, b Document, field string) int {
	av, aok := Lookup(a, field)
	bv, bok := Lookup(b, field)
	aok = aok && av != nil
	bok = bok && bv != nil
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	c, _ := Compare(av, bv)
	return c
}

// Project keeps only the listed paths of doc, plus its id.
func Project(doc Document, projection []string) Document {
	if len(projection) == 0 {
		return doc.Clone()
	}
	out := Document{KeyID: doc[KeyID]}
	for _, path := range projection {
		v, ok := Lookup(doc, path)
		if !ok {
			continue
		}
		setPath(out, path, cloneValue(v))
	}
	return out
}

func setPath(doc Document, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(Document)
		if !ok {
			next = Document{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}
