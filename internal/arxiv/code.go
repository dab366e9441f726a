// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-digest/internal/httputil"
)

// paperswithcodeBase is the Papers with Code API root. Declared as a var
// so tests can substitute an httptest server.
var paperswithcodeBase = "https://paperswithcode.com/api/v1"

const codeLookupRetries = 5

// CodeFinder finds an official code repository for a paper.
type CodeFinder struct {
	HTTP   *http.Client
	Logger *zap.Logger
}

type pwcList struct {
	Count   int `json:"count"`
	Results []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"results"`
}

// Lookup returns the first repository URL listed for the paper, or "" when
// there is none. Lookup failures are logged and also yield "".
func (f *CodeFinder) Lookup(ctx context.Context, arxivID string) string {
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	papers, err := f.get(ctx, paperswithcodeBase+"/papers/?arxiv_id="+url.QueryEscape(arxivID))
	if err != nil {
		logger.Debug("code lookup failed", zap.String("paper_id", arxivID), zap.Error(err))
		return ""
	}
	if papers.Count == 0 || len(papers.Results) == 0 {
		return ""
	}

	repos, err := f.get(ctx, paperswithcodeBase+"/papers/"+url.PathEscape(papers.Results[0].ID)+"/repositories/")
	if err != nil {
		logger.Debug("code lookup failed", zap.String("paper_id", arxivID), zap.Error(err))
		return ""
	}
	if repos.Count == 0 || len(repos.Results) == 0 {
		return ""
	}
	return repos.Results[0].URL
}

func (f *CodeFinder) get(ctx context.Context, u string) (pwcList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return pwcList{}, fmt.Errorf("creating request: %w", err)
	}
	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, codeLookupRetries, f.Logger)
	if err != nil {
		return pwcList{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pwcList{}, fmt.Errorf("HTTP %d from %s", resp.StatusCode, u)
	}
	var list pwcList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return pwcList{}, fmt.Errorf("decoding %s: %w", u, err)
	}
	return list, nil
}
