// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/pdiddy/paper-digest/pkg/memo"
)

// ErrScoreAssigned is returned when a paper's relevance score is set twice.
var ErrScoreAssigned = errors.New("relevance score already assigned")

// versionSuffixRe matches the trailing version of an arXiv identifier ("v2").
var versionSuffixRe = regexp.MustCompile(`v\d+$`)

// CanonicalID strips the version suffix from an arXiv identifier
// (e.g. "2301.07041v3" -> "2301.07041").
func CanonicalID(id string) string {
	return versionSuffixRe.ReplaceAllString(id, "")
}

// Paper is a candidate under evaluation for the digest. The memoized cells
// are filled lazily by the pipeline and never recomputed.
type Paper struct {
	// ID is the canonical arXiv identifier without version suffix.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the arXiv summary text.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the submission timestamp.
	Published time.Time `json:"published" yaml:"published"`

	// PDFURL links to the paper PDF.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// Source is the parsed LaTeX bundle. A Failed cell means no bundle.
	Source memo.Cell[*Bundle] `json:"-" yaml:"-"`

	// TLDR is the one-sentence summary.
	TLDR memo.Cell[string] `json:"-" yaml:"-"`

	// Affiliations is the deduplicated affiliation list. Failed means no
	// author block was found or the model reply was unusable; an empty
	// Computed list means the block had no affiliations.
	Affiliations memo.Cell[[]string] `json:"-" yaml:"-"`

	// CodeURL is the first code repository link, "" when none.
	CodeURL memo.Cell[string] `json:"-" yaml:"-"`

	scoreMu sync.Mutex
	score   *float64
}

// SetScore assigns the relevance score. It may be called only once.
func (p *Paper) SetScore(s float64) error {
	p.scoreMu.Lock()
	defer p.scoreMu.Unlock()
	if p.score != nil {
		return fmt.Errorf("paper %s: %w", p.ID, ErrScoreAssigned)
	}
	p.score = &s
	return nil
}

// Score returns the relevance score and whether it has been assigned.
func (p *Paper) Score() (float64, bool) {
	p.scoreMu.Lock()
	defer p.scoreMu.Unlock()
	if p.score == nil {
		return 0, false
	}
	return *p.score, true
}
