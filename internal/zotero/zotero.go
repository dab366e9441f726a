// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zotero retrieves the reference corpus from a Zotero user library.
package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// apiBase is the Zotero web API root. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://api.zotero.org"

const (
	pageSize   = 100
	itemTypes  = "conferencePaper || journalArticle || preprint"
	dateLayout = "2006-01-02T15:04:05Z"
)

// Client reads one user's library.
type Client struct {
	HTTP   *http.Client
	Config types.ZoteroConfig
	Logger *zap.Logger
}

type item struct {
	Key  string   `json:"key"`
	Data itemData `json:"data"`
}

type itemData struct {
	Title        string   `json:"title"`
	AbstractNote string   `json:"abstractNote"`
	DateAdded    string   `json:"dateAdded"`
	Collections  []string `json:"collections"`
}

type collection struct {
	Key  string         `json:"key"`
	Data collectionData `json:"data"`
}

type collectionData struct {
	Name string `json:"name"`

	// ParentCollection is false for top-level collections and a key otherwise.
	ParentCollection any `json:"parentCollection"`
}

// Corpus returns every paper-like item with a non-empty abstract, minus
// items filed under an ignored collection.
func (c *Client) Corpus(ctx context.Context) ([]types.CorpusEntry, error) {
	var matcher *ignore.GitIgnore
	var paths map[string]string
	if len(c.Config.Ignore) > 0 {
		matcher = ignore.CompileIgnoreLines(c.Config.Ignore...)
		cols, err := c.collections(ctx)
		if err != nil {
			return nil, err
		}
		paths = collectionPaths(cols)
	}

	q := url.Values{"itemType": {itemTypes}}
	var items []item
	if err := c.paginate(ctx, "items", q, func(raw json.RawMessage) error {
		var page []item
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		items = append(items, page...)
		return nil
	}); err != nil {
		return nil, err
	}

	logger := c.logger()
	corpus := make([]types.CorpusEntry, 0, len(items))
	for _, it := range items {
		if it.Data.AbstractNote == "" {
			continue
		}
		if matcher != nil && ignored(matcher, paths, it.Data.Collections) {
			logger.Debug("ignoring corpus item", zap.String("key", it.Key))
			continue
		}
		added, err := time.Parse(dateLayout, it.Data.DateAdded)
		if err != nil {
			logger.Debug("unparseable dateAdded", zap.String("key", it.Key), zap.String("date_added", it.Data.DateAdded))
		}
		corpus = append(corpus, types.CorpusEntry{
			Key:      it.Key,
			Title:    it.Data.Title,
			Abstract: it.Data.AbstractNote,
			Added:    added,
		})
	}
	logger.Info("retrieved reference corpus", zap.Int("items", len(items)), zap.Int("with_abstract", len(corpus)))
	return corpus, nil
}

func (c *Client) collections(ctx context.Context) ([]collection, error) {
	var cols []collection
	err := c.paginate(ctx, "collections", url.Values{}, func(raw json.RawMessage) error {
		var page []collection
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		cols = append(cols, page...)
		return nil
	})
	return cols, err
}

// paginate walks a listing endpoint until Total-Results is reached or a
// page comes back short.
func (c *Client) paginate(ctx context.Context, resource string, q url.Values, page func(json.RawMessage) error) error {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	q.Set("limit", strconv.Itoa(pageSize))

	for start := 0; ; start += pageSize {
		q.Set("start", strconv.Itoa(start))
		u := fmt.Sprintf("%s/users/%s/%s?%s", apiBase, url.PathEscape(c.Config.UserID), resource, q.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Zotero-API-Key", c.Config.APIKey)
		req.Header.Set("Zotero-API-Version", "3")

		resp, err := httputil.DoWithRetry(ctx, client, req, 0, c.Logger)
		if err != nil {
			return fmt.Errorf("zotero %s request: %w", resource, err)
		}

		var raw json.RawMessage
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("zotero %s returned HTTP %d", resource, resp.StatusCode)
		}
		err = json.NewDecoder(resp.Body).Decode(&raw)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding zotero %s: %w", resource, err)
		}

		var count []json.RawMessage
		if err := json.Unmarshal(raw, &count); err != nil {
			return fmt.Errorf("decoding zotero %s: %w", resource, err)
		}
		if err := page(raw); err != nil {
			return fmt.Errorf("decoding zotero %s: %w", resource, err)
		}

		total, convErr := strconv.Atoi(resp.Header.Get("Total-Results"))
		if len(count) < pageSize || (convErr == nil && start+len(count) >= total) {
			return nil
		}
	}
}

// collectionPaths maps each collection key to its slash-joined path from
// the library root, e.g. "Reading/Vision".
func collectionPaths(cols []collection) map[string]string {
	byKey := make(map[string]collection, len(cols))
	for _, c := range cols {
		byKey[c.Key] = c
	}
	paths := make(map[string]string, len(cols))
	for _, c := range cols {
		var parts []string
		seen := make(map[string]bool)
		for cur, ok := c, true; ok && !seen[cur.Key]; {
			seen[cur.Key] = true
			parts = append([]string{cur.Data.Name}, parts...)
			parent, isKey := cur.Data.ParentCollection.(string)
			if !isKey {
				break
			}
			cur, ok = byKey[parent]
		}
		paths[c.Key] = strings.Join(parts, "/")
	}
	return paths
}

func ignored(m *ignore.GitIgnore, paths map[string]string, keys []string) bool {
	for _, k := range keys {
		if p, ok := paths[k]; ok && m.MatchesPath(p) {
			return true
		}
	}
	return false
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
