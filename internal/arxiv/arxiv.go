// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv retrieves newly announced papers, their source archives and
// their code repository links.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Endpoints. Declared as vars so tests can substitute an httptest server.
var (
	rssBase    = "https://rss.arxiv.org/atom/"
	exportBase = "https://export.arxiv.org/api/query"
	eprintBase = "https://arxiv.org/e-print/"
)

// ErrInvalidQuery is returned when arXiv does not recognize the category query.
var ErrInvalidQuery = errors.New("invalid arXiv query")

const (
	exportBatchSize = 20
	debugLimit      = 5
	oaiPrefix       = "oai:arXiv.org:"
	announceNew     = "new"
)

// Client talks to arXiv. Source downloads are paced by Limiter.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Limiter   *rate.Limiter
	Logger    *zap.Logger

	// Debug limits retrieval to a handful of papers.
	Debug bool
}

// NewClient builds a client whose source downloads are spaced by sourceDelay.
func NewClient(cfg types.HTTPConfig, sourceDelay time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if sourceDelay > 0 {
		limit = rate.Every(sourceDelay)
	}
	return &Client{
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		UserAgent: cfg.UserAgent,
		Limiter:   rate.NewLimiter(limit, 1),
		Logger:    logger,
	}
}

// Fetch returns the papers newly announced today for query, a
// "+"-separated list of categories such as "cs.AI+cs.CV".
func (c *Client) Fetch(ctx context.Context, query string) ([]*types.Paper, error) {
	ids, err := c.announced(ctx, query)
	if err != nil {
		return nil, err
	}
	if c.Debug && len(ids) > debugLimit {
		ids = ids[:debugLimit]
	}
	c.Logger.Info("new announcements", zap.String("query", query), zap.Int("count", len(ids)))

	var papers []*types.Paper
	for start := 0; start < len(ids); start += exportBatchSize {
		end := min(start+exportBatchSize, len(ids))
		batch, err := c.lookup(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		papers = append(papers, batch...)
	}
	return papers, nil
}

// announced reads the category feed and returns the canonical ids of
// entries announced as new, in feed order.
func (c *Client) announced(ctx context.Context, query string) ([]string, error) {
	parser := gofeed.NewParser()
	parser.Client = c.HTTP
	parser.UserAgent = c.UserAgent

	feed, err := parser.ParseURLWithContext(rssBase+query, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching arXiv feed: %w", err)
	}
	if strings.Contains(feed.Title, "Feed error for query") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, query)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, item := range feed.Items {
		if announceType(item) != announceNew {
			continue
		}
		id := types.CanonicalID(strings.TrimPrefix(item.GUID, oaiPrefix))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func announceType(item *gofeed.Item) string {
	exts := item.Extensions["arxiv"]["announce_type"]
	if len(exts) == 0 {
		return ""
	}
	return strings.TrimSpace(exts[0].Value)
}

// lookup resolves metadata for up to exportBatchSize ids. Results follow
// the order of ids; ids arXiv does not return are skipped.
func (c *Client) lookup(ctx context.Context, ids []string) ([]*types.Paper, error) {
	u := fmt.Sprintf("%s?id_list=%s&max_results=%d", exportBase, url.QueryEscape(strings.Join(ids, ",")), len(ids))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed exportFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	byID := make(map[string]*types.Paper, len(feed.Entries))
	for _, e := range feed.Entries {
		if p := e.paper(); p != nil {
			byID[p.ID] = p
		}
	}
	papers := make([]*types.Paper, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			papers = append(papers, p)
		} else {
			c.Logger.Debug("paper missing from arXiv API response", zap.String("paper_id", id))
		}
	}
	return papers, nil
}

// arXiv export API Atom structures.
type exportFeed struct {
	Entries []exportEntry `xml:"entry"`
}

type exportEntry struct {
	ID        string         `xml:"id"`
	Title     string         `xml:"title"`
	Summary   string         `xml:"summary"`
	Published string         `xml:"published"`
	Authors   []exportAuthor `xml:"author"`
	Links     []exportLink   `xml:"link"`
}

type exportAuthor struct {
	Name string `xml:"name"`
}

type exportLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

func (e exportEntry) paper() *types.Paper {
	id := idFromAbsURL(e.ID)
	if id == "" {
		return nil
	}
	p := &types.Paper{
		ID:       id,
		Title:    collapse(e.Title),
		Abstract: collapse(e.Summary),
		PDFURL:   "https://arxiv.org/pdf/" + id,
	}
	for _, a := range e.Authors {
		p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		p.Published = t
	}
	return p
}

// idFromAbsURL pulls the canonical id from an entry URL such as
// "http://arxiv.org/abs/2301.07041v1".
func idFromAbsURL(u string) string {
	const marker = "/abs/"
	i := strings.Index(u, marker)
	if i < 0 {
		return ""
	}
	return types.CanonicalID(u[i+len(marker):])
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
