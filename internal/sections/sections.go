// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sections isolates the introduction and conclusion of a flattened
// LaTeX document. The extraction is a best-effort heuristic that only serves
// to shrink the summarization prompt.
package sections

import (
	"regexp"

	"github.com/pdiddy/paper-digest/pkg/types"
)

var (
	citeRe   = regexp.MustCompile(`~?\\cite.?\{.*?\}`)
	figureRe = regexp.MustCompile(`(?s)\\begin\{figure\*?\}.*?\\end\{figure\*?\}`)
	tableRe  = regexp.MustCompile(`(?s)\\begin\{table\*?\}.*?\\end\{table\*?\}`)

	introRe      = regionRe("Introduction")
	conclusionRe = regionRe("Conclusion")
)

// regionRe matches a \section{heading} region. Group 1 is the terminator:
// the next \section, \end{document}, \bibliography, \appendix, or end of text.
func regionRe(heading string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)\\section\{` + regexp.QuoteMeta(heading) +
		`\}.*?(\\section|\\end\{document\}|\\bibliography|\\appendix|$)`)
}

// Sections holds the extracted regions; either may be empty.
type Sections struct {
	Introduction string
	Conclusion   string
}

// Extract strips citations, figures, and tables from text and returns the
// Introduction and Conclusion regions. Each region runs from its heading up
// to, but not including, the terminator that ends it.
func Extract(text string) Sections {
	text = citeRe.ReplaceAllString(text, "")
	text = figureRe.ReplaceAllString(text, "")
	text = tableRe.ReplaceAllString(text, "")
	return Sections{
		Introduction: region(introRe, text),
		Conclusion:   region(conclusionRe, text),
	}
}

// FromBundle extracts sections from a bundle's flattened text, or from all
// member texts when no primary document exists. A nil bundle has none.
func FromBundle(b *types.Bundle) Sections {
	if b == nil {
		return Sections{}
	}
	return Extract(b.Text())
}

func region(re *regexp.Regexp, text string) string {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return ""
	}
	return text[loc[0]:loc[2]]
}
