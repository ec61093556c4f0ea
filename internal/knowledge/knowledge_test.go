package knowledge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newWikiServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "opensearch" {
			http.Error(w, "bad action", http.StatusBadRequest)
			return
		}
		switch r.URL.Query().Get("search") {
		case "photosynthesis":
			_, _ = io.WriteString(w, `["photosynthesis",["Photosynthesis"],[""],["https://en.wikipedia.org/wiki/Photosynthesis"]]`)
		default:
			_, _ = io.WriteString(w, `["zzz",[],[],[]]`)
		}
	})
	mux.HandleFunc("/api/rest_v1/page/summary/Photosynthesis", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"title":"Photosynthesis","extract":"Plain extract.","extract_html":"<p><b>Photosynthesis</b> converts light into chemical energy.</p>","content_urls":{"desktop":{"page":"https://en.wikipedia.org/wiki/Photosynthesis"}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWikipediaFetch(t *testing.T) {
	srv := newWikiServer(t)
	w := NewWikipedia(srv.URL+"/", time.Second)

	a, err := w.Fetch(context.Background(), "photosynthesis")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if a.Title != "Photosynthesis" || !strings.Contains(a.URL, "/wiki/Photosynthesis") {
		t.Errorf("article = %+v", a)
	}
	if a.Content != "**Photosynthesis** converts light into chemical energy." {
		t.Errorf("content = %q", a.Content)
	}
}

func TestWikipediaFetch_noArticle(t *testing.T) {
	srv := newWikiServer(t)
	_, err := NewWikipedia(srv.URL, time.Second).Fetch(context.Background(), "zzz")
	if !errors.Is(err, ErrNoArticle) {
		t.Errorf("err = %v, want ErrNoArticle", err)
	}
	if _, err := NewWikipedia(srv.URL, time.Second).Fetch(context.Background(), "  "); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestWikipediaFetch_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	_, err := NewWikipedia(srv.URL, time.Second).Fetch(context.Background(), "anything")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v", err)
	}
}

func TestWikipediaFetch_followsCallerDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	w := NewWikipedia(srv.URL, 0)
	if w.client.Timeout != 0 {
		t.Errorf("client timeout = %v, want none", w.client.Timeout)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := w.Fetch(ctx, "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
	if got := NewWikipedia(srv.URL, 3*time.Second).client.Timeout; got != 3*time.Second {
		t.Errorf("configured timeout = %v", got)
	}
}

type fakeFetcher struct {
	article *Article
	err     error
}

func (f fakeFetcher) Fetch(context.Context, string) (*Article, error) { return f.article, f.err }

type fakeLLM struct {
	prompt string
	out    string
	err    error
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func TestServiceAnswer(t *testing.T) {
	tests := []struct {
		name        string
		fetcher     fakeFetcher
		llm         *fakeLLM
		wantAnswer  string
		wantSources int
	}{
		{
			name:        "formatted",
			fetcher:     fakeFetcher{article: &Article{Title: "ATP", Content: "ATP stores energy."}},
			llm:         &fakeLLM{out: "- ATP stores energy"},
			wantAnswer:  "- ATP stores energy",
			wantSources: 1,
		},
		{
			name:        "fetch error",
			fetcher:     fakeFetcher{err: ErrNoArticle},
			llm:         &fakeLLM{},
			wantAnswer:  "Could not fetch from external knowledge source. Error: no matching article found",
			wantSources: 0,
		},
		{
			name:        "model error",
			fetcher:     fakeFetcher{article: &Article{Content: "x"}},
			llm:         &fakeLLM{err: errors.New("quota exceeded")},
			wantAnswer:  "Could not fetch from external knowledge source. Error: quota exceeded",
			wantSources: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewService(tt.fetcher, tt.llm).Answer(context.Background(), "what is ATP")
			if got.Answer != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", got.Answer, tt.wantAnswer)
			}
			if got.Sources == nil || len(got.Sources) != tt.wantSources {
				t.Errorf("sources = %#v", got.Sources)
			}
		})
	}
}

func TestServiceAnswer_promptMentionsQuery(t *testing.T) {
	l := &fakeLLM{out: "ok"}
	NewService(fakeFetcher{article: &Article{Content: "Mitosis divides cells."}}, l).Answer(context.Background(), "mitosis")
	if !strings.Contains(l.prompt, "'mitosis'") || !strings.Contains(l.prompt, "Mitosis divides cells.") {
		t.Errorf("prompt = %q", l.prompt)
	}
}
