// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tldr generates one-sentence summaries of papers.
package tldr

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/sections"
	"github.com/pdiddy/paper-digest/internal/tokenize"
)

const (
	// DefaultLanguage is the summary language when none is configured.
	DefaultLanguage = "English"

	// DefaultMaxTokens bounds the rendered prompt.
	DefaultMaxTokens = 4000
)

const systemPrompt = "You are an assistant who perfectly summarizes scientific paper, and gives the core idea of the paper to the user."

var promptTmpl = template.Must(template.New("tldr").Parse(`Given the title, abstract, introduction and the conclusion (if any) of a paper in latex format, generate a one-sentence TLDR summary in {{.Language}}:

\title{ {{- .Title -}} }
\begin{abstract} {{- .Abstract -}} \end{abstract}
{{.Introduction}}
{{.Conclusion}}
`))

// Input is the paper text a summary is built from. Introduction and
// Conclusion may be empty.
type Input struct {
	Title        string
	Abstract     string
	Introduction string
	Conclusion   string
}

// InputFrom combines paper metadata with extracted sections.
func InputFrom(title, abstract string, s sections.Sections) Input {
	return Input{
		Title:        title,
		Abstract:     abstract,
		Introduction: s.Introduction,
		Conclusion:   s.Conclusion,
	}
}

// Summarizer produces summaries with a language model. It does not retry;
// retries belong to the backend.
type Summarizer struct {
	Generator llm.Generator
	Tokenizer tokenize.Tokenizer

	// Language is the output language. Empty means DefaultLanguage.
	Language string

	// MaxTokens bounds the prompt. Zero means DefaultMaxTokens.
	MaxTokens int
}

type promptData struct {
	Input
	Language string
}

// Prompt renders the user prompt for in, truncated to the token bound.
func (s *Summarizer) Prompt(in Input) (string, error) {
	lang := s.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, promptData{Input: in, Language: lang}); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	prompt := buf.String()
	if s.Tokenizer != nil {
		max := s.MaxTokens
		if max <= 0 {
			max = DefaultMaxTokens
		}
		prompt = tokenize.Truncate(s.Tokenizer, prompt, max)
	}
	return prompt, nil
}

// Summarize returns the model's reply verbatim.
func (s *Summarizer) Summarize(ctx context.Context, in Input) (string, error) {
	prompt, err := s.Prompt(in)
	if err != nil {
		return "", err
	}
	reply, err := s.Generator.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}
	return reply, nil
}
