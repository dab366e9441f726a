// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var errNoList = errors.New("no bracketed list in reply")

// parseList reads a list literal of quoted strings. Single and double
// quotes, backslash escapes, and a trailing comma are accepted. Bare
// numbers and the words True, False, None are kept as their text.
func parseList(literal string) ([]string, error) {
	p := &listParser{src: []rune(literal)}
	return p.list()
}

type listParser struct {
	src []rune
	pos int
}

func (p *listParser) list() ([]string, error) {
	p.skipSpace()
	if !p.consume('[') {
		return nil, p.errorf("expected '['")
	}
	items := []string{}
	for {
		p.skipSpace()
		if p.consume(']') {
			break
		}
		item, err := p.item()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(']') {
			break
		}
		return nil, p.errorf("expected ',' or ']'")
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing text after list")
	}
	return items, nil
}

func (p *listParser) item() (string, error) {
	if p.pos >= len(p.src) {
		return "", p.errorf("unexpected end of list")
	}
	switch c := p.src[p.pos]; {
	case c == '\'' || c == '"':
		return p.quoted(c)
	case c == '-' || c == '+' || c == '.' || unicode.IsDigit(c):
		return p.number()
	default:
		return p.word()
	}
}

func (p *listParser) quoted(quote rune) (string, error) {
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case quote:
			return b.String(), nil
		case '\\':
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			b.WriteRune(unescape(p.src[p.pos]))
			p.pos++
		case '\n':
			return "", p.errorf("newline in string")
		default:
			b.WriteRune(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func unescape(c rune) rune {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (p *listParser) number() (string, error) {
	start := p.pos
	if c := p.src[p.pos]; c == '-' || c == '+' {
		p.pos++
	}
	digits := 0
	for p.pos < len(p.src) && (unicode.IsDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		if p.src[p.pos] != '.' {
			digits++
		}
		p.pos++
	}
	if digits == 0 {
		return "", p.errorf("malformed number")
	}
	text := string(p.src[start:p.pos])
	return strings.TrimPrefix(text, "+"), nil
}

func (p *listParser) word() (string, error) {
	start := p.pos
	for p.pos < len(p.src) && unicode.IsLetter(p.src[p.pos]) {
		p.pos++
	}
	switch w := string(p.src[start:p.pos]); w {
	case "True", "False", "None":
		return w, nil
	default:
		return "", p.errorf("unexpected token %q", w)
	}
}

func (p *listParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *listParser) consume(c rune) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *listParser) errorf(format string, args ...any) error {
	return fmt.Errorf("parsing list at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}
