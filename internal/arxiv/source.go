// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/internal/texsource"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// ErrSourceNotFound is returned when arXiv has no source for a paper.
var ErrSourceNotFound = errors.New("source not found")

// DownloadSource saves the source archive of paper id into dir and returns
// the file path. Downloads wait on the client's rate limiter.
func (c *Client) DownloadSource(ctx context.Context, id, dir string) (string, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eprintBase+id, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0, c.Logger)
	if err != nil {
		return "", fmt.Errorf("downloading source of %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%s: %w", id, ErrSourceNotFound)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("downloading source of %s: HTTP %d", id, resp.StatusCode)
	}

	path := filepath.Join(dir, strings.ReplaceAll(id, "/", "_")+".src")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

// Bundle downloads and parses the source of paper id in a scratch
// directory that is removed afterwards. A nil bundle with a nil error means
// the source exists but holds no usable LaTeX.
func (c *Client) Bundle(ctx context.Context, id string) (*types.Bundle, error) {
	dir, err := os.MkdirTemp("", "paper-digest-src-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path, err := c.DownloadSource(ctx, id, dir)
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			c.Logger.Warn("source not found, skipping source analysis", zap.String("paper_id", id))
		}
		return nil, err
	}
	return texsource.Parse(path, id, c.Logger), nil
}
