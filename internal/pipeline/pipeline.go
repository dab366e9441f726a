// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one daily digest: fetch the reference corpus and
// today's candidates, rank them, enrich the top papers, render the digest
// and deliver it.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-digest/internal/digest"
	"github.com/pdiddy/paper-digest/internal/history"
	"github.com/pdiddy/paper-digest/internal/sections"
	"github.com/pdiddy/paper-digest/internal/tldr"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// CorpusSource supplies the reference corpus.
type CorpusSource interface {
	Corpus(ctx context.Context) ([]types.CorpusEntry, error)
}

// PaperSource supplies today's candidates.
type PaperSource interface {
	Fetch(ctx context.Context, query string) ([]*types.Paper, error)
}

// SourceFetcher downloads and parses a paper's LaTeX source.
type SourceFetcher interface {
	Bundle(ctx context.Context, id string) (*types.Bundle, error)
}

// CodeLookup finds a paper's code repository; "" means none.
type CodeLookup interface {
	Lookup(ctx context.Context, id string) string
}

// Ranker scores and orders candidates.
type Ranker interface {
	Rerank(ctx context.Context, candidates []*types.Paper, corpus []types.CorpusEntry) ([]*types.Paper, error)
}

// Summarizer writes a one-sentence summary.
type Summarizer interface {
	Summarize(ctx context.Context, in tldr.Input) (string, error)
}

// AffiliationExtractor lists author affiliations; false means absent.
type AffiliationExtractor interface {
	Extract(ctx context.Context, text, paperID string) ([]string, bool)
}

// Sender delivers the rendered digest.
type Sender interface {
	Send(ctx context.Context, cfg types.MailConfig, html string) error
}

// Recorder stores a finished run.
type Recorder interface {
	Record(ctx context.Context, run history.Run) (int64, error)
}

// Pipeline wires the stages of a run. Sources, Codes, Mailer and History
// may be nil; the corresponding step is skipped.
type Pipeline struct {
	Corpus       CorpusSource
	Papers       PaperSource
	Sources      SourceFetcher
	Codes        CodeLookup
	Reranker     Ranker
	Summarizer   Summarizer
	Affiliations AffiliationExtractor
	Mailer       Sender
	History      Recorder

	// Renderer turns entries into HTML. Nil means digest.Render.
	Renderer func([]digest.Entry) (string, error)

	Config types.Config
	Logger *zap.Logger

	// DryRun renders without sending mail.
	DryRun bool

	// Output, when set, receives the rendered HTML.
	Output io.Writer

	// Progress receives human-readable status lines. Nil discards them.
	Progress io.Writer

	// Now stamps the run. Nil means time.Now.
	Now func() time.Time
}

// Report summarizes a run.
type Report struct {
	Candidates  int
	Recommended []*types.Paper
	Delivered   bool
	HTML        string
	RunID       int64
}

// Run executes the pipeline once.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	logger := p.logger()
	progress := p.Progress
	if progress == nil {
		progress = io.Discard
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	started := now()

	fmt.Fprintln(progress, "Retrieving Zotero corpus...")
	corpus, err := p.Corpus.Corpus(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("retrieving corpus: %w", err)
	}

	fmt.Fprintln(progress, "Retrieving arXiv papers...")
	candidates, err := p.Papers.Fetch(ctx, p.Config.Arxiv.Query)
	if err != nil {
		return Report{}, fmt.Errorf("retrieving papers: %w", err)
	}
	report := Report{Candidates: len(candidates)}

	if len(candidates) == 0 {
		fmt.Fprintln(progress, "No new papers found.")
		if !p.Config.Mail.SendEmpty {
			return report, nil
		}
	} else {
		fmt.Fprintf(progress, "Reranking %d papers against %d corpus items...\n", len(candidates), len(corpus))
		ranked, err := p.Reranker.Rerank(ctx, candidates, corpus)
		if err != nil {
			return report, fmt.Errorf("reranking: %w", err)
		}
		if limit := p.Config.Arxiv.MaxPapers; limit > 0 && len(ranked) > limit {
			ranked = ranked[:limit]
		}
		report.Recommended = ranked

		fmt.Fprintf(progress, "Enriching %d papers...\n", len(ranked))
		if err := p.enrichAll(ctx, ranked); err != nil {
			return report, err
		}
	}

	entries := make([]digest.Entry, len(report.Recommended))
	for i, paper := range report.Recommended {
		entries[i] = digest.EntryFrom(paper)
	}
	render := p.Renderer
	if render == nil {
		render = digest.Render
	}
	report.HTML, err = render(entries)
	if err != nil {
		return report, err
	}

	if p.Output != nil {
		if _, err := io.WriteString(p.Output, report.HTML); err != nil {
			return report, fmt.Errorf("writing digest: %w", err)
		}
	}

	switch {
	case p.DryRun:
		fmt.Fprintln(progress, "Dry run, not sending email.")
	case p.Mailer == nil:
		logger.Warn("no mailer configured, digest not sent")
	default:
		fmt.Fprintln(progress, "Sending email...")
		if err := p.Mailer.Send(ctx, p.Config.Mail, report.HTML); err != nil {
			return report, fmt.Errorf("delivering digest: %w", err)
		}
		report.Delivered = true
	}

	if p.History != nil {
		id, err := p.History.Record(ctx, p.run(started, report))
		if err != nil {
			logger.Warn("recording run history failed", zap.Error(err))
		} else {
			report.RunID = id
		}
	}

	fmt.Fprintln(progress, "Done.")
	return report, nil
}

// enrichAll resolves derived fields of every paper, at most Config.Workers
// papers at a time. Per-paper failures are absorbed.
func (p *Pipeline) enrichAll(ctx context.Context, papers []*types.Paper) error {
	workers := p.Config.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, paper := range papers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.enrich(gctx, paper)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("enriching papers: %w", err)
	}
	return nil
}

func (p *Pipeline) enrich(ctx context.Context, paper *types.Paper) {
	logger := p.logger().With(zap.String("paper_id", paper.ID))

	bundle, _ := paper.Source.Resolve(func() (*types.Bundle, bool) {
		if p.Sources == nil {
			return nil, false
		}
		b, err := p.Sources.Bundle(ctx, paper.ID)
		if err != nil {
			logger.Debug("source unavailable", zap.Error(err))
			return nil, false
		}
		return b, b != nil
	})
	secs := sections.FromBundle(bundle)

	paper.TLDR.Resolve(func() (string, bool) {
		s, err := p.Summarizer.Summarize(ctx, tldr.InputFrom(paper.Title, paper.Abstract, secs))
		if err != nil {
			logger.Warn("summary failed, showing abstract", zap.Error(err))
			return "", false
		}
		return s, true
	})

	paper.Affiliations.Resolve(func() ([]string, bool) {
		if bundle == nil || p.Affiliations == nil {
			return nil, false
		}
		return p.Affiliations.Extract(ctx, bundle.Text(), paper.ID)
	})

	paper.CodeURL.Resolve(func() (string, bool) {
		if p.Codes == nil {
			return "", false
		}
		u := p.Codes.Lookup(ctx, paper.ID)
		return u, u != ""
	})
}

func (p *Pipeline) run(started time.Time, report Report) history.Run {
	run := history.Run{
		StartedAt:  started,
		Query:      p.Config.Arxiv.Query,
		Candidates: report.Candidates,
		Delivered:  report.Delivered,
	}
	for i, paper := range report.Recommended {
		rec := history.Recommendation{
			PaperID: paper.ID,
			Rank:    i + 1,
			Title:   paper.Title,
		}
		rec.Score, _ = paper.Score()
		rec.TLDR, _ = paper.TLDR.Get()
		if aff, ok := paper.Affiliations.Get(); ok {
			rec.Affiliations = aff
		}
		run.Recommendations = append(run.Recommendations, rec)
	}
	return run
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
