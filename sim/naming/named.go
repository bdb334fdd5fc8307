// Package naming defines the hierarchical names of simulation objects, such
// as "Hospital.Ward[2].Beds".
package naming

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name.
func (b NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase
func MakeNamedBase(name string) NamedBase {
	return NamedBase{name: name}
}
