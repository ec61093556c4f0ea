// Package knowledge answers questions from an external encyclopedia when the tenant's
// documents cannot.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// DefaultBaseURL is the English Wikipedia.
const DefaultBaseURL = "https://en.wikipedia.org"

// ErrNoArticle is returned when the search finds no matching article.
var ErrNoArticle = errors.New("no matching article found")

// Article is the summary of one encyclopedia page.
type Article struct {
	Title   string
	URL     string
	Content string // markdown
}

// Wikipedia resolves a query to an article title and fetches its summary.
type Wikipedia struct {
	baseURL string
	client  *http.Client
}

// NewWikipedia creates a client for baseURL (default DefaultBaseURL). A zero timeout
// means requests run until ctx is done.
func NewWikipedia(baseURL string, timeout time.Duration) *Wikipedia {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout < 0 {
		timeout = 0
	}
	return &Wikipedia{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch finds the best matching article for query and returns its summary as markdown.
func (w *Wikipedia) Fetch(ctx context.Context, query string) (*Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	title, err := w.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return w.summary(ctx, title)
}

// search uses the opensearch API, whose response is [query, titles, descriptions, urls].
func (w *Wikipedia) search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "opensearch")
	params.Set("search", query)
	params.Set("limit", "1")
	params.Set("namespace", "0")
	params.Set("format", "json")

	var raw []json.RawMessage
	if err := w.getJSON(ctx, w.baseURL+"/w/api.php?"+params.Encode(), &raw); err != nil {
		return "", fmt.Errorf("failed to search: %w", err)
	}
	if len(raw) < 2 {
		return "", fmt.Errorf("unexpected search response")
	}
	var titles []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return "", fmt.Errorf("failed to decode search titles: %w", err)
	}
	if len(titles) == 0 || titles[0] == "" {
		return "", ErrNoArticle
	}
	return titles[0], nil
}

type summaryResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ExtractHTML string `json:"extract_html"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (w *Wikipedia) summary(ctx context.Context, title string) (*Article, error) {
	endpoint := w.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	var s summaryResponse
	if err := w.getJSON(ctx, endpoint, &s); err != nil {
		return nil, fmt.Errorf("failed to fetch summary: %w", err)
	}
	content := strings.TrimSpace(s.Extract)
	if s.ExtractHTML != "" {
		md, err := htmltomarkdown.ConvertString(s.ExtractHTML)
		if err == nil && strings.TrimSpace(md) != "" {
			content = strings.TrimSpace(md)
		}
	}
	if content == "" {
		return nil, ErrNoArticle
	}
	if s.Title == "" {
		s.Title = title
	}
	return &Article{Title: s.Title, URL: s.ContentURLs.Desktop.Page, Content: content}, nil
}

func (w *Wikipedia) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "manabu/1.0 (study assistant)")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoArticle
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
