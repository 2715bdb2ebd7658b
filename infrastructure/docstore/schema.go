package docstore

import (
	"strings"
)

// Kind is the stored type of a field.
type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindBool
	KindTime
	KindID
	KindStrings
	KindObject
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindID:
		return "id"
	case KindStrings:
		return "string array"
	case KindObject:
		return "object"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// Relation describes a reference that can be eager-loaded. A to-one relation
// stores the related id in LocalField and replaces it with the related
// document; a to-many relation collects related documents whose ForeignField
// equals this document's LocalField.
type Relation struct {
	Name         string
	Collection   string
	LocalField   string
	ForeignField string
	Many         bool
}

// Schema declares what a collection stores. Field names may be dotted paths
// into nested objects.
type Schema struct {
	Collection string
	Fields     map[string]Kind
	Relations  map[string]Relation
	Unique     []string
	// Hidden fields are dropped from every read unless explicitly projected.
	Hidden []string
	// GeoField holds a GeoJSON point and gets a spherical index.
	GeoField string
}

// Kind returns the kind of field.
func (s Schema) Kind(field string) (Kind, bool) {
	if field == KeyID {
		return KindID, true
	}
	k, ok := s.Fields[field]
	return k, ok
}

// Relation returns the eager-loadable relation called name.
func (s Schema) Relation(name string) (Relation, bool) {
	r, ok := s.Relations[name]
	return r, ok
}

// TimeFields returns every field of KindTime.
func (s Schema) TimeFields() []string {
	var out []string
	for f, k := range s.Fields {
		if k == KindTime {
			out = append(out, f)
		}
	}
	return out
}

// IsHidden reports whether field, or a parent of it, is hidden.
func (s Schema) IsHidden(field string) bool {
	for _, h := range s.Hidden {
		if field == h || strings.HasPrefix(field, h+".") {
			return true
		}
	}
	return false
}

// StripHidden removes hidden fields that were not asked for.
func (s Schema) StripHidden(doc Document, projection []string) Document {
	for _, h := range s.Hidden {
		if containsString(projection, h) {
			continue
		}
		delete(doc, h)
	}
	return doc
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
