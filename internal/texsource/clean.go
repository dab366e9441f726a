// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package texsource

import (
	"regexp"
	"strings"
)

var (
	blankLinesRe = regexp.MustCompile(`\n+`)
	wideSpaceRe  = regexp.MustCompile(`[ \t\r\f]{3,}`)
)

// Clean normalizes one LaTeX source file. In order: line comments are cut
// to end of line, comment environments and \iffalse...\fi blocks are
// removed with their delimiters, runs of newlines collapse to one, literal
// "\\" line breaks are dropped, and runs of three or more horizontal
// whitespace characters collapse to one space.
func Clean(content string) string {
	content = stripLineComments(content)
	content = stripBlocks(content, `\begin{comment}`, `\end{comment}`)
	content = stripBlocks(content, `\iffalse`, `\fi`)
	content = blankLinesRe.ReplaceAllString(content, "\n")
	content = strings.ReplaceAll(content, `\\`, "")
	content = wideSpaceRe.ReplaceAllString(content, " ")
	return content
}

// stripLineComments removes everything from an unescaped % to the end of
// its line, keeping the newline. "\%" is a literal percent sign.
func stripLineComments(content string) string {
	if !strings.Contains(content, "%") {
		return content
	}
	var b strings.Builder
	b.Grow(len(content))
	for len(content) > 0 {
		line := content
		rest := ""
		if i := strings.IndexByte(content, '\n'); i >= 0 {
			line, rest = content[:i+1], content[i+1:]
		}
		content = rest

		cut := commentStart(line)
		if cut < 0 {
			b.WriteString(line)
			continue
		}
		b.WriteString(line[:cut])
		if strings.HasSuffix(line, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// commentStart returns the index of the first % not escaped by an odd
// number of backslashes, or -1.
func commentStart(line string) int {
	slashes := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			slashes++
			continue
		case '%':
			if slashes%2 == 0 {
				return i
			}
		}
		slashes = 0
	}
	return -1
}

// stripBlocks removes each region from open to the first following close,
// delimiters included. An open without a matching close is left in place.
func stripBlocks(content, open, close string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, open)
		if start < 0 {
			break
		}
		end := strings.Index(content[start+len(open):], close)
		if end < 0 {
			break
		}
		b.WriteString(content[:start])
		content = content[start+len(open)+end+len(close):]
	}
	if b.Len() == 0 {
		return content
	}
	b.WriteString(content)
	return b.String()
}
