// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CorpusEntry is one item from the user's reference library. It is only a
// relevance baseline and is never displayed.
type CorpusEntry struct {
	// Key is the library's item key.
	Key string `json:"key" yaml:"key"`

	// Title is the item title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the item's abstract text, compared against candidates.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Added is when the item entered the library.
	Added time.Time `json:"added" yaml:"added"`
}
