// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package digest renders ranked papers as an HTML email body.
package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const (
	// maxListed caps the authors and affiliations shown per paper.
	maxListed = 5

	unknownAffiliation = "Unknown Affiliation"

	starLow  = 6.0
	starHigh = 8.0
)

// Entry is one paper as displayed in the digest.
type Entry struct {
	ID           string
	Title        string
	Authors      []string
	Affiliations []string

	// HasAffiliations distinguishes "none found" from "not determined".
	HasAffiliations bool

	Score   float64
	TLDR    string
	PDFURL  string
	CodeURL string
}

// EntryFrom reads a paper's resolved fields. A missing summary falls back to
// the abstract.
func EntryFrom(p *types.Paper) Entry {
	e := Entry{
		ID:      p.ID,
		Title:   p.Title,
		Authors: p.Authors,
		PDFURL:  p.PDFURL,
	}
	e.Score, _ = p.Score()
	if tldr, ok := p.TLDR.Get(); ok && strings.TrimSpace(tldr) != "" {
		e.TLDR = tldr
	} else {
		e.TLDR = p.Abstract
	}
	e.Affiliations, e.HasAffiliations = p.Affiliations.Get()
	e.CodeURL, _ = p.CodeURL.Get()
	return e
}

// Rating is a star display: whole stars and at most one half star.
type Rating struct {
	Full int
	Half int
}

// Stars maps a relevance score onto five stars in half-star steps between
// 6 and 8. Scores at or below 6 get no stars.
func Stars(score float64) Rating {
	switch {
	case score <= starLow:
		return Rating{}
	case score >= starHigh:
		return Rating{Full: 5}
	}
	steps := int(math.Ceil((score - starLow) / ((starHigh - starLow) / 10)))
	full := steps / 2
	return Rating{Full: full, Half: steps - 2*full}
}

// List joins up to five names, marking truncation with ", ...".
func List(names []string) string {
	if len(names) <= maxListed {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:maxListed], ", ") + ", ..."
}

type view struct {
	Entry
	AuthorLine      string
	AffiliationLine string
	Rating          Rating
}

var funcs = template.FuncMap{
	"repeat": func(n int) []struct{} { return make([]struct{}, n) },
}

var pageTmpl = template.Must(template.New("digest").Funcs(funcs).Parse(`<!DOCTYPE HTML>
<html>
<head>
  <style>
    .star-wrapper { font-size: 1.3em; line-height: 1; display: inline-flex; align-items: center; }
    .half-star { display: inline-block; width: 0.5em; overflow: hidden; white-space: nowrap; vertical-align: middle; }
    .full-star { vertical-align: middle; }
  </style>
</head>
<body>
<div>
{{- if not . }}
  <table border="0" cellpadding="0" cellspacing="0" width="100%" style="font-family: Arial, sans-serif; border: 1px solid #ddd; border-radius: 8px; padding: 16px; background-color: #f9f9f9;">
  <tr><td style="font-size: 20px; font-weight: bold; color: #333;">No Papers Today. Take a Rest!</td></tr>
  </table>
{{- end }}
{{- range . }}
<br>
<table border="0" cellpadding="0" cellspacing="0" width="100%" style="font-family: Arial, sans-serif; border: 1px solid #ddd; border-radius: 8px; padding: 16px; background-color: #f9f9f9;">
<tr><td style="font-size: 20px; font-weight: bold; color: #333;">{{ .Title }}</td></tr>
<tr><td style="font-size: 14px; color: #666; padding: 8px 0;">{{ .AuthorLine }}<br><i>{{ .AffiliationLine }}</i></td></tr>
<tr><td style="font-size: 14px; color: #333; padding: 8px 0;"><strong>Relevance:</strong>
{{- if or .Rating.Full .Rating.Half }} <div class="star-wrapper">
{{- range repeat .Rating.Full }}<span class="full-star">⭐</span>{{ end }}
{{- range repeat .Rating.Half }}<span class="half-star">⭐</span>{{ end -}}
</div>{{ end }}</td></tr>
<tr><td style="font-size: 14px; color: #333; padding: 8px 0;"><strong>arXiv ID:</strong> {{ .ID }}</td></tr>
<tr><td style="font-size: 14px; color: #333; padding: 8px 0;"><strong>TLDR:</strong> {{ .TLDR }}</td></tr>
<tr><td style="padding: 8px 0;">
<a href="{{ .PDFURL }}" style="display: inline-block; text-decoration: none; font-size: 14px; font-weight: bold; color: #fff; background-color: #d9534f; padding: 8px 16px; border-radius: 4px;">PDF</a>
{{- if .CodeURL }}
<a href="{{ .CodeURL }}" style="display: inline-block; text-decoration: none; font-size: 14px; font-weight: bold; color: #fff; background-color: #5bc0de; padding: 8px 16px; border-radius: 4px; margin-left: 8px;">Code</a>
{{- end }}
</td></tr>
</table>
{{- end }}
</div>
<br><br>
<div>To unsubscribe, remove your address from the paper-digest configuration.</div>
</body>
</html>
`))

// Render produces the digest page. An empty list renders a rest-day notice.
func Render(entries []Entry) (string, error) {
	views := make([]view, len(entries))
	for i, e := range entries {
		aff := unknownAffiliation
		if e.HasAffiliations {
			aff = List(e.Affiliations)
		}
		views[i] = view{
			Entry:           e,
			AuthorLine:      List(e.Authors),
			AffiliationLine: aff,
			Rating:          Stars(e.Score),
		}
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, views); err != nil {
		return "", fmt.Errorf("rendering digest: %w", err)
	}
	return buf.String(), nil
}
