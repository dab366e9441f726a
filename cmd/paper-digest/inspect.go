// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/affiliation"
	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/sections"
	"github.com/pdiddy/paper-digest/internal/texsource"
	"github.com/pdiddy/paper-digest/internal/tldr"
	"github.com/pdiddy/paper-digest/internal/tokenize"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <source-archive>",
	Short: "Show what the pipeline reads from a downloaded source archive",
	Long: `Inspect parses an arXiv source archive (.tar.gz, .tar, or a single
compressed .tex file) the same way a run does and prints the files kept,
the main document, the extracted sections and the author region.

With --llm the configured language model is also asked for the
affiliations and a summary.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("llm", false, "also extract affiliations and a summary with the configured model")
	inspectCmd.Flags().String("title", "", "paper title used in the summary prompt")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	bundle := texsource.Parse(path, id, logger)
	if bundle == nil {
		fmt.Println("No usable LaTeX source found.")
		return nil
	}

	fmt.Printf("Files (%d):\n", len(bundle.Order))
	for _, name := range bundle.Order {
		marker := " "
		if name == bundle.Primary {
			marker = "*"
		}
		fmt.Printf("  %s %s (%d bytes)\n", marker, name, len(bundle.Files[name]))
	}

	text := bundle.Text()
	secs := sections.FromBundle(bundle)
	fmt.Printf("\nIntroduction: %d chars\n", len(secs.Introduction))
	fmt.Printf("Conclusion:   %d chars\n", len(secs.Conclusion))

	region, ok := affiliation.AuthorRegion(text)
	if ok {
		fmt.Printf("\nAuthor region:\n%s\n", region)
	} else {
		fmt.Println("\nAuthor region: not found")
	}

	useLLM, _ := cmd.Flags().GetBool("llm")
	if !useLLM {
		return nil
	}
	return inspectWithModel(cmd, bundle, id, secs)
}

func inspectWithModel(cmd *cobra.Command, bundle *types.Bundle, id string, secs sections.Sections) error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}
	gen, err := llm.New(cfg.LLM, nil, logger)
	if err != nil {
		return err
	}
	tok, err := tokenize.NewTiktoken(cfg.LLM.Model)
	if err != nil {
		return err
	}

	ext := &affiliation.Extractor{Generator: gen, Tokenizer: tok, Logger: logger}
	affs, ok := ext.Extract(cmd.Context(), bundle.Text(), id)
	if ok {
		fmt.Printf("\nAffiliations: %s\n", strings.Join(affs, "; "))
	} else {
		fmt.Println("\nAffiliations: unavailable")
	}

	title, _ := cmd.Flags().GetString("title")
	sum := &tldr.Summarizer{Generator: gen, Tokenizer: tok, Language: cfg.LLM.Language}
	summary, err := sum.Summarize(cmd.Context(), tldr.InputFrom(title, "", secs))
	if err != nil {
		return err
	}
	fmt.Printf("\nTLDR: %s\n", summary)
	return nil
}
