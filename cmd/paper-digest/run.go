// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/internal/affiliation"
	"github.com/pdiddy/paper-digest/internal/arxiv"
	"github.com/pdiddy/paper-digest/internal/digest"
	"github.com/pdiddy/paper-digest/internal/embedding"
	"github.com/pdiddy/paper-digest/internal/history"
	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/mailer"
	"github.com/pdiddy/paper-digest/internal/pipeline"
	"github.com/pdiddy/paper-digest/internal/rerank"
	"github.com/pdiddy/paper-digest/internal/tldr"
	"github.com/pdiddy/paper-digest/internal/tokenize"
	"github.com/pdiddy/paper-digest/internal/zotero"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and send today's digest",
	Long: `Run retrieves the Zotero corpus and today's arXiv announcements, ranks
the candidates, summarizes the top papers and mails the digest. With
--dry-run nothing is sent; combine it with --output to inspect the HTML.`,
	RunE: runDigest,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "render the digest without sending mail")
	runCmd.Flags().String("output", "", "write the rendered HTML to this file (- for stdout)")
	runCmd.Flags().String("report", "", "write a YAML summary of the recommendations to this file")
	runCmd.Flags().Int("workers", 0, "papers enriched concurrently (default from config, 1)")
	runCmd.Flags().Int("max-papers", 0, "cap on recommended papers, negative for no cap (default from config, 100)")

	rootCmd.AddCommand(runCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	debug, _ := cmd.Flags().GetBool("debug")
	outputPath, _ := cmd.Flags().GetString("output")
	reportPath, _ := cmd.Flags().GetString("report")

	cfg, err := loadConfig(!dryRun)
	if err != nil {
		return err
	}
	if w, _ := cmd.Flags().GetInt("workers"); w > 0 {
		cfg.Workers = w
	}
	if n, _ := cmd.Flags().GetInt("max-papers"); n != 0 {
		cfg.Arxiv.MaxPapers = n
	}

	p, closeFn, err := buildPipeline(cfg, debug)
	if err != nil {
		return err
	}
	defer closeFn()
	p.DryRun = dryRun
	p.Progress = os.Stdout

	if outputPath != "" {
		out, closeOut, err := openOutput(outputPath)
		if err != nil {
			return err
		}
		defer closeOut()
		p.Output = out
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	report, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nCandidates: %d  Recommended: %d  Delivered: %t\n",
		report.Candidates, len(report.Recommended), report.Delivered)

	if reportPath != "" {
		if err := writeReport(reportPath, report); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", reportPath)
	}
	return nil
}

// buildPipeline constructs every stage from cfg. The returned function
// releases the history database.
func buildPipeline(cfg types.Config, debug bool) (*pipeline.Pipeline, func(), error) {
	client := &http.Client{Timeout: cfg.HTTP.Timeout}

	gen, err := llm.New(cfg.LLM, llmClient(cfg, client), logger)
	if err != nil {
		return nil, nil, err
	}
	tok, err := tokenize.NewTiktoken(cfg.LLM.Model)
	if err != nil {
		return nil, nil, err
	}
	embedder, err := embedding.New(cfg.Embedding, client)
	if err != nil {
		return nil, nil, err
	}

	papers := arxiv.NewClient(cfg.HTTP, cfg.Arxiv.SourceDelay, logger)
	papers.Debug = debug

	p := &pipeline.Pipeline{
		Corpus:   &zotero.Client{HTTP: client, Config: cfg.Zotero, Logger: logger},
		Papers:   papers,
		Sources:  papers,
		Codes:    &arxiv.CodeFinder{HTTP: client, Logger: logger},
		Reranker: &rerank.Reranker{Embedder: embedder},
		Summarizer: &tldr.Summarizer{
			Generator: gen,
			Tokenizer: tok,
			Language:  cfg.LLM.Language,
		},
		Affiliations: &affiliation.Extractor{
			Generator: gen,
			Tokenizer: tok,
			Logger:    logger,
		},
		Mailer: &mailer.Mailer{Logger: logger},
		Config: cfg,
		Logger: logger,
	}

	closeFn := func() {}
	if cfg.History.Dir != "" {
		store, err := history.Open(cfg.History.Dir)
		if err != nil {
			return nil, nil, err
		}
		p.History = store
		closeFn = func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing history", zap.Error(err))
			}
		}
	}
	return p, closeFn, nil
}

// llmClient returns the HTTP client for the language model. A local model
// gets nil so the backend's own long timeout applies instead of the shared
// request timeout.
func llmClient(cfg types.Config, shared *http.Client) *http.Client {
	if cfg.LLM.Backend == types.BackendOllama {
		return nil
	}
	return shared
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// runReport is the YAML form of a finished run.
type runReport struct {
	Candidates int           `yaml:"candidates"`
	Delivered  bool          `yaml:"delivered"`
	RunID      int64         `yaml:"run_id,omitempty"`
	Papers     []reportPaper `yaml:"papers"`
}

type reportPaper struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	Score        float64  `yaml:"score"`
	TLDR         string   `yaml:"tldr"`
	Affiliations []string `yaml:"affiliations,omitempty"`
	PDF          string   `yaml:"pdf,omitempty"`
	Code         string   `yaml:"code,omitempty"`
}

func newRunReport(r pipeline.Report) runReport {
	out := runReport{
		Candidates: r.Candidates,
		Delivered:  r.Delivered,
		RunID:      r.RunID,
		Papers:     make([]reportPaper, 0, len(r.Recommended)),
	}
	for _, p := range r.Recommended {
		e := digest.EntryFrom(p)
		out.Papers = append(out.Papers, reportPaper{
			ID:           e.ID,
			Title:        e.Title,
			Score:        e.Score,
			TLDR:         e.TLDR,
			Affiliations: e.Affiliations,
			PDF:          e.PDFURL,
			Code:         e.CodeURL,
		})
	}
	return out
}

func writeReport(path string, r pipeline.Report) error {
	data, err := yaml.Marshal(newRunReport(r))
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
