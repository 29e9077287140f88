// Package idgen produces time-ordered identifiers for users, records and local tokens.
package idgen

import (
	"github.com/gofrs/uuid/v5"
)

// Generator returns new identifiers. Values sort by creation time.
type Generator interface {
	NewID() (string, error)
}

// V7 generates UUIDv7 strings, whose leading bits are a millisecond timestamp.
type V7 struct {
	gen *uuid.Gen
}

// NewV7 constructs a UUIDv7 generator.
func NewV7() *V7 { return &V7{gen: uuid.NewGen()} }

// NewID returns a fresh UUIDv7 string.
func (g *V7) NewID() (string, error) {
	id, err := g.gen.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Prefixed decorates another generator with a fixed prefix, e.g. "user_".
type Prefixed struct {
	Prefix string
	Gen    Generator
}

// NewID returns Prefix followed by the wrapped generator's id.
func (p Prefixed) NewID() (string, error) {
	id, err := p.Gen.NewID()
	if err != nil {
		return "", err
	}
	return p.Prefix + id, nil
}
