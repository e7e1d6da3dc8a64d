package feature

import "sort"

// Set is an order-independent collection of features.
type Set map[Feature]struct{}

// NewSet returns a set holding the given features.
func NewSet(fs ...Feature) Set {
	s := make(Set, len(fs))
	s.Add(fs...)
	return s
}

// SetFromStrings builds a set from raw strings as found in definition files.
// Values outside the enumeration are kept so comparisons still see them.
func SetFromStrings(ss []string) Set {
	s := make(Set, len(ss))
	for _, v := range ss {
		s[Feature(v)] = struct{}{}
	}
	return s
}

// Add inserts features into the set.
func (s Set) Add(fs ...Feature) {
	for _, f := range fs {
		s[f] = struct{}{}
	}
}

// Has reports whether f is in the set.
func (s Set) Has(f Feature) bool {
	_, ok := s[f]
	return ok
}

// Equal reports set equality.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for f := range s {
		if !other.Has(f) {
			return false
		}
	}
	return true
}

// Sorted returns the features in canonical order, followed by any
// non-canonical values in lexical order.
func (s Set) Sorted() []Feature {
	out := make([]Feature, 0, len(s))
	for _, f := range all {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	var extra []Feature
	for f := range s {
		if _, err := Parse(string(f)); err != nil {
			extra = append(extra, f)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// Strings returns Sorted as plain strings.
func (s Set) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, f := range sorted {
		out[i] = string(f)
	}
	return out
}
