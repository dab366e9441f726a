// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/llm"
)

// fakeGenerator records the conversation and replies with a fixed text.
type fakeGenerator struct {
	reply string
	err   error
	calls int
	last  []llm.Message
}

func (f *fakeGenerator) Generate(_ context.Context, msgs []llm.Message) (string, error) {
	f.calls++
	f.last = msgs
	return f.reply, f.err
}

// runes counts each rune as one token.
type runes struct{}

func (runes) Encode(text string) []int {
	out := make([]int, 0, len(text))
	for _, r := range text {
		out = append(out, int(r))
	}
	return out
}

func (runes) Decode(tokens []int) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteRune(rune(t))
	}
	return b.String()
}

const authorDoc = `\documentclass{article}
\title{A Paper}
\author{Alice \\ MIT \and Bob \\ Stanford}
\maketitle
\begin{abstract}x\end{abstract}`

func TestAuthorRegion(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "author block",
			text:   authorDoc,
			want:   "\\author{Alice \\\\ MIT \\and Bob \\\\ Stanford}\n\\maketitle",
			wantOK: true,
		},
		{
			name:   "document to abstract",
			text:   "\\begin{document}\nAlice, MIT\n\\begin{abstract}hi\\end{abstract}",
			want:   "\\begin{document}\nAlice, MIT\n\\begin{abstract}",
			wantOK: true,
		},
		{
			name:   "author block wins over document region",
			text:   "\\begin{document}\\author{A}\\maketitle\\begin{abstract}",
			want:   "\\author{A}\\maketitle",
			wantOK: true,
		},
		{
			name: "no region",
			text: "\\section{Introduction} no authors here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AuthorRegion(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract(t *testing.T) {
	gen := &fakeGenerator{reply: `Sure, here it is: ["MIT", "MIT", "Stanford"]`}
	e := &Extractor{Generator: gen, Tokenizer: runes{}}

	got, ok := e.Extract(context.Background(), authorDoc, "2401.00001")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"MIT", "Stanford"}, got)

	require.Len(t, gen.last, 2)
	assert.Equal(t, llm.RoleSystem, gen.last[0].Role)
	assert.Equal(t, llm.RoleUser, gen.last[1].Role)
	assert.Contains(t, gen.last[1].Content, `\author{Alice`)
}

func TestExtract_AbsentVersusEmpty(t *testing.T) {
	gen := &fakeGenerator{reply: "[]"}
	e := &Extractor{Generator: gen}

	got, ok := e.Extract(context.Background(), authorDoc, "p")
	require.True(t, ok, "author block found with no affiliations is a present empty list")
	assert.Empty(t, got)
	assert.NotNil(t, got)

	got, ok = e.Extract(context.Background(), "no author block", "p")
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 1, gen.calls, "the model is not called without an author region")
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{name: "generator error", gen: &fakeGenerator{err: errors.New("timeout")}},
		{name: "no list in reply", gen: &fakeGenerator{reply: "I could not find any."}},
		{name: "invalid literal", gen: &fakeGenerator{reply: "[MIT, Stanford]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Extractor{Generator: tt.gen}
			got, ok := e.Extract(context.Background(), authorDoc, "p")
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestExtract_TruncatesRegion(t *testing.T) {
	gen := &fakeGenerator{reply: "[]"}
	e := &Extractor{Generator: gen, Tokenizer: runes{}, MaxTokens: 10}

	_, ok := e.Extract(context.Background(), authorDoc, "p")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(gen.last[1].Content, "\n\\author{Al"), gen.last[1].Content)
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    []string
		wantErr bool
	}{
		{name: "double quotes", reply: `["A", "B"]`, want: []string{"A", "B"}},
		{name: "single quotes", reply: `['TsingHua University','Peking University']`, want: []string{"TsingHua University", "Peking University"}},
		{name: "mixed quotes with embedded quote", reply: `["King's College", 'Uni "X"']`, want: []string{"King's College", `Uni "X"`}},
		{name: "escaped quote", reply: `['King\'s College']`, want: []string{"King's College"}},
		{name: "trailing comma", reply: `['A', 'B',]`, want: []string{"A", "B"}},
		{name: "numbers coerced", reply: `[42, 'A', 3.5]`, want: []string{"42", "A", "3.5"}},
		{name: "spans lines", reply: "Result:\n[\n  'A',\n  'B'\n]\nDone", want: []string{"A", "B"}},
		{name: "first list wins", reply: `['A'] and ['B']`, want: []string{"A"}},
		{name: "dedup keeps first order", reply: `['B', 'A', 'B', 'A']`, want: []string{"B", "A"}},
		{name: "empty with spaces", reply: `[ ]`, want: []string{}},
		{name: "no list", reply: "nothing", wantErr: true},
		{name: "bare words", reply: "[MIT]", wantErr: true},
		{name: "unterminated string", reply: `['MIT]`, wantErr: true},
		{name: "missing comma", reply: `['A' 'B']`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
