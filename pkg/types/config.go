// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-digest pipeline:
// candidate papers with their memoized derived fields, parsed source bundles,
// reference corpus entries, and per-stage configuration.
package types

import (
	"errors"
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ArxivConfig holds settings for candidate retrieval.
type ArxivConfig struct {
	// Query is the arXiv category query (e.g. "cs.AI+cs.CV").
	Query string `json:"query" yaml:"query" mapstructure:"query"`

	// MaxPapers caps the number of papers in the digest. Zero means the
	// default of 100; a negative value means no cap.
	MaxPapers int `json:"max_papers" yaml:"max_papers" mapstructure:"max_papers"`

	// SourceDelay is the minimum spacing between source downloads (default 3s).
	SourceDelay time.Duration `json:"source_delay" yaml:"source_delay" mapstructure:"source_delay"`
}

// ZoteroConfig holds settings for reference corpus retrieval.
type ZoteroConfig struct {
	// UserID is the numeric Zotero user ID.
	UserID string `json:"user_id" yaml:"user_id" mapstructure:"user_id"`

	// APIKey is the Zotero API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Ignore lists gitignore-style collection path patterns to exclude.
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty" mapstructure:"ignore"`
}

// LLMBackend selects the language-model variant.
type LLMBackend string

const (
	BackendOpenAI LLMBackend = "openai"
	BackendOllama LLMBackend = "ollama"
)

// LLMConfig holds settings for summary and affiliation generation.
type LLMConfig struct {
	// Backend is "openai" (hosted, OpenAI-compatible) or "ollama" (local).
	Backend LLMBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// APIKey authenticates the hosted backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the backend endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Model is the chat model name.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Language is the TLDR output language (default "English").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// MaxRetries is the number of attempts for hosted calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryDelay is the pause between hosted attempts (default 3s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`
}

// EmbeddingProviderName selects the embedding backend.
type EmbeddingProviderName string

const (
	EmbeddingOllama EmbeddingProviderName = "ollama"
	EmbeddingOpenAI EmbeddingProviderName = "openai"
	EmbeddingCohere EmbeddingProviderName = "cohere"
)

// EmbeddingConfig holds settings for the reranker's embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama", "openai", or "cohere".
	Provider EmbeddingProviderName `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the embedding model name.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey authenticates hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// MailConfig holds SMTP delivery settings.
type MailConfig struct {
	SMTPServer string `json:"smtp_server" yaml:"smtp_server" mapstructure:"smtp_server"`
	SMTPPort   int    `json:"smtp_port" yaml:"smtp_port" mapstructure:"smtp_port"`
	Sender     string `json:"sender" yaml:"sender" mapstructure:"sender"`
	Receiver   string `json:"receiver" yaml:"receiver" mapstructure:"receiver"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`

	// SendEmpty sends a "no papers" digest when nothing new was found.
	SendEmpty bool `json:"send_empty" yaml:"send_empty" mapstructure:"send_empty"`
}

// HistoryConfig holds settings for the run history database.
type HistoryConfig struct {
	// Dir contains history.db. Empty disables history.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// Config groups all stage configurations for one run.
type Config struct {
	HTTP      HTTPConfig      `json:"http" yaml:"http" mapstructure:"http"`
	Arxiv     ArxivConfig     `json:"arxiv" yaml:"arxiv" mapstructure:"arxiv"`
	Zotero    ZoteroConfig    `json:"zotero" yaml:"zotero" mapstructure:"zotero"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Mail      MailConfig      `json:"mail" yaml:"mail" mapstructure:"mail"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`

	// Workers bounds concurrent per-paper enrichment (default 1).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// Defaults fills zero-valued settings with their defaults.
func (c *Config) Defaults() {
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 60 * time.Second
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "paper-digest/0.1"
	}
	if c.Arxiv.MaxPapers == 0 {
		c.Arxiv.MaxPapers = 100
	}
	if c.Arxiv.SourceDelay == 0 {
		c.Arxiv.SourceDelay = 3 * time.Second
	}
	if c.LLM.Backend == "" {
		if c.LLM.APIKey != "" {
			c.LLM.Backend = BackendOpenAI
		} else {
			c.LLM.Backend = BackendOllama
		}
	}
	if c.LLM.Model == "" {
		if c.LLM.Backend == BackendOpenAI {
			c.LLM.Model = "gpt-4o"
		} else {
			c.LLM.Model = "qwen2.5:3b"
		}
	}
	if c.LLM.Language == "" {
		c.LLM.Language = "English"
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = 3
	}
	if c.LLM.RetryDelay == 0 {
		c.LLM.RetryDelay = 3 * time.Second
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = EmbeddingOllama
	}
	if c.Mail.SMTPPort == 0 {
		c.Mail.SMTPPort = 465
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

// Validate reports missing required settings. Mail settings are only
// required when delivery is requested.
func (c *Config) Validate(deliver bool) error {
	var errs []error
	if c.Arxiv.Query == "" {
		errs = append(errs, errors.New("arxiv.query is required"))
	}
	if c.Zotero.UserID == "" {
		errs = append(errs, errors.New("zotero.user_id is required"))
	}
	if c.Zotero.APIKey == "" {
		errs = append(errs, errors.New("zotero.api_key is required"))
	}
	switch c.LLM.Backend {
	case BackendOpenAI:
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("llm.api_key is required for the openai backend"))
		}
	case BackendOllama:
	default:
		errs = append(errs, fmt.Errorf("llm.backend %q is not one of openai, ollama", c.LLM.Backend))
	}
	switch c.Embedding.Provider {
	case EmbeddingOllama:
	case EmbeddingOpenAI, EmbeddingCohere:
		if c.Embedding.APIKey == "" {
			errs = append(errs, fmt.Errorf("embedding.api_key is required for the %s provider", c.Embedding.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of ollama, openai, cohere", c.Embedding.Provider))
	}
	if deliver {
		if c.Mail.SMTPServer == "" || c.Mail.Sender == "" || c.Mail.Receiver == "" {
			errs = append(errs, errors.New("mail.smtp_server, mail.sender and mail.receiver are required to send"))
		}
	}
	return errors.Join(errs...)
}
