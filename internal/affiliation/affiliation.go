// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package affiliation asks a language model for the top-level institutions
// of a paper's authors.
//
// Two outcomes are kept apart: an absent result (no author block, a model
// failure, or an unparseable reply) and an empty list (an author block was
// found and the model reported no affiliations).
package affiliation

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/tokenize"
)

// DefaultMaxTokens bounds the author region sent to the model.
const DefaultMaxTokens = 4000

const systemPrompt = "You are an assistant who perfectly extracts affiliations of authors from the author information of a paper. " +
	"You should return a python list of affiliations sorted by the author order, like ['TsingHua University','Peking University']. " +
	"If an affiliation is consisted of multi-level affiliations, like 'Department of Computer Science, TsingHua University', " +
	"you should return the top-level affiliation 'TsingHua University' only. Do not contain duplicated affiliations. " +
	"If there is no affiliation found, you should return an empty list [ ]. " +
	"You should only return the final list of affiliations, and do not return any intermediate results."

const userPrompt = "Given the author information of a paper in latex format, extract the affiliations of the authors " +
	"in a python list format, which is sorted by the author order. " +
	"If there is no affiliation found, return an empty list '[]'. Following is the author information:\n"

// regions are tried in order; the first match wins.
var regions = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\\author.*?\\maketitle`),
	regexp.MustCompile(`(?s)\\begin\{document\}.*?\\begin\{abstract\}`),
}

var listRe = regexp.MustCompile(`(?s)\[.*?\]`)

// Extractor extracts affiliations with a language model.
type Extractor struct {
	Generator llm.Generator
	Tokenizer tokenize.Tokenizer

	// MaxTokens bounds the author region. Zero means DefaultMaxTokens.
	MaxTokens int

	Logger *zap.Logger
}

// AuthorRegion returns the first author-information region of text.
func AuthorRegion(text string) (string, bool) {
	for _, re := range regions {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// Extract returns the deduplicated affiliations found in text. The boolean
// is false when the result is absent. Failures are logged, never returned.
func (e *Extractor) Extract(ctx context.Context, text, paperID string) ([]string, bool) {
	logger := e.logger().With(zap.String("paper_id", paperID))

	region, ok := AuthorRegion(text)
	if !ok {
		logger.Debug("no author information found")
		return nil, false
	}

	maxTokens := e.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if e.Tokenizer != nil {
		region = tokenize.Truncate(e.Tokenizer, region, maxTokens)
	}

	reply, err := e.Generator.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt + region},
	})
	if err != nil {
		logger.Debug("affiliation generation failed", zap.Error(err))
		return nil, false
	}

	affiliations, err := ParseReply(reply)
	if err != nil {
		logger.Debug("unparseable affiliation reply", zap.Error(err))
		return nil, false
	}
	return affiliations, true
}

// ParseReply parses the first bracketed list literal in a model reply and
// removes duplicates, keeping first-seen order.
func ParseReply(reply string) ([]string, error) {
	literal := listRe.FindString(reply)
	if literal == "" {
		return nil, errNoList
	}
	items, err := parseList(literal)
	if err != nil {
		return nil, err
	}
	return dedup(items), nil
}

func dedup(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

func (e *Extractor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
