// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-digest CLI. A run fetches
// today's arXiv announcements, ranks them against the user's Zotero
// library, summarizes the top papers and mails an HTML digest.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/paper-digest/internal/secrets"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds keys loaded from the secrets directory at startup.
	loadedSecrets secrets.Store

	logger = zap.NewNop()
)

// configKeys are bound to PAPER_DIGEST_* environment variables so that
// Unmarshal sees them without a config file.
var configKeys = []string{
	"http.timeout", "http.user_agent",
	"arxiv.query", "arxiv.max_papers", "arxiv.source_delay",
	"zotero.user_id", "zotero.api_key", "zotero.ignore",
	"llm.backend", "llm.api_key", "llm.base_url", "llm.model", "llm.language",
	"llm.max_retries", "llm.retry_delay",
	"embedding.provider", "embedding.model", "embedding.base_url", "embedding.api_key",
	"mail.smtp_server", "mail.smtp_port", "mail.sender", "mail.receiver", "mail.password",
	"mail.send_empty",
	"history.dir",
	"workers",
}

// rootCmd is the base command for the paper-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-digest",
	Short: "Daily arXiv recommendations ranked against your Zotero library",
	Long: `paper-digest retrieves the papers newly announced on arXiv for your
categories, ranks them by similarity to the papers in your Zotero library,
writes a one-sentence summary for each, extracts author affiliations from
the LaTeX source and mails the result as an HTML digest.

Settings come from paper-digest.yaml, PAPER_DIGEST_* environment variables
and .env. API keys may also be placed in the secrets directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		l, err := newLogger(debug)
		if err != nil {
			return err
		}
		logger = l

		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logger.Warn("could not load .env", zap.Error(err))
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-digest.yaml or ~/.config/paper-digest/paper-digest.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of plain-text secret files")
	rootCmd.PersistentFlags().Bool("debug", false, "verbose logging and at most 5 candidate papers")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-digest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-digest"))
		}
	}

	viper.SetEnvPrefix("PAPER_DIGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range configKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger. Debug switches to the development
// encoder at debug level.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l, nil
}

// loadConfig reads the configuration and validates it. Mail settings are
// only checked when deliver is set.
func loadConfig(deliver bool) (types.Config, error) {
	cfg, err := readConfig()
	if err != nil {
		return types.Config{}, err
	}
	if err := cfg.Validate(deliver); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// readConfig assembles the configuration from viper and the secrets store
// and applies defaults.
func readConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("reading configuration: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = loadedSecrets.Get(secrets.OpenAIAPIKey)
	}
	if cfg.Zotero.APIKey == "" {
		cfg.Zotero.APIKey = loadedSecrets.Get(secrets.ZoteroAPIKey)
	}
	if cfg.Mail.Password == "" {
		cfg.Mail.Password = loadedSecrets.Get(secrets.SMTPPassword)
	}

	cfg.Defaults()

	if cfg.Embedding.APIKey == "" {
		switch cfg.Embedding.Provider {
		case types.EmbeddingOpenAI:
			cfg.Embedding.APIKey = loadedSecrets.Get(secrets.OpenAIAPIKey)
		case types.EmbeddingCohere:
			cfg.Embedding.APIKey = loadedSecrets.Get(secrets.CohereAPIKey)
		}
	}

	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
