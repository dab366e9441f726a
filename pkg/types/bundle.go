// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// FlattenedKey is the reserved bundle key for the flattened primary document.
const FlattenedKey = "all"

// Bundle is the cleaned text of a paper's LaTeX source archive.
type Bundle struct {
	// Files maps each .tex member name to its cleaned content.
	Files map[string]string

	// Order lists member names in archive order.
	Order []string

	// Primary names the selected root document, "" when none was found.
	Primary string

	// Flattened is the primary document with one level of \input/\include
	// substituted. Nil when no primary document was found.
	Flattened *string
}

// Text returns the flattened document, or the archive-order concatenation
// of every member when no primary document exists.
func (b *Bundle) Text() string {
	if b == nil {
		return ""
	}
	if b.Flattened != nil {
		return *b.Flattened
	}
	parts := make([]string, 0, len(b.Order))
	for _, name := range b.Order {
		parts = append(parts, b.Files[name])
	}
	return strings.Join(parts, "\n")
}

// Map returns the single-mapping view: every member plus FlattenedKey. The
// reserved key maps to nil when no primary document was found.
func (b *Bundle) Map() map[string]*string {
	m := make(map[string]*string, len(b.Files)+1)
	for name, content := range b.Files {
		c := content
		m[name] = &c
	}
	m[FlattenedKey] = b.Flattened
	return m
}
