package models

// FieldStatus tells whether an extracted field holds a value
type FieldStatus string

const (
	StatusFound        FieldStatus = "found"
	StatusNotFound     FieldStatus = "not_found"
	StatusNotExtracted FieldStatus = "not_extracted"
)

// Field is an extracted value together with an explicit presence marker.
// Value is only meaningful when Status is StatusFound; for StatusNotExtracted
// it may hold a fallback candidate.
type Field[T any] struct {
	Status FieldStatus `json:"status" yaml:"status"`
	Value  T           `json:"value,omitzero" yaml:"value,omitempty"`
	Rule   string      `json:"rule,omitempty" yaml:"rule,omitempty"`
	Note   string      `json:"note,omitempty" yaml:"note,omitempty"`
}

// Found returns a field holding v, extracted by the named rule
func Found[T any](v T, rule string) Field[T] {
	return Field[T]{Status: StatusFound, Value: v, Rule: rule}
}

// NotFound returns a field with no match
func NotFound[T any]() Field[T] {
	return Field[T]{Status: StatusNotFound}
}

// NotExtracted returns a field whose match could not be parsed
func NotExtracted[T any](fallback T, rule, note string) Field[T] {
	return Field[T]{Status: StatusNotExtracted, Value: fallback, Rule: rule, Note: note}
}

// Ok reports whether the field holds an extracted value
func (f Field[T]) Ok() bool {
	return f.Status == StatusFound
}

// Get returns the value and whether it was found
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.Status == StatusFound
}

// Or returns the value when found and def otherwise
func (f Field[T]) Or(def T) T {
	if f.Status == StatusFound {
		return f.Value
	}
	return def
}
