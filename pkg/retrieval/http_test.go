package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "hello world", "hello world"},
		{"tags removed", "<p>hello</p> <b>world</b>", "hello world"},
		{"script removed", `<script>alert("x")</script>content`, "content"},
		{"style removed", "<style>body{}</style>content", "content"},
		{"nav removed", "<nav><a href></a></nav>content", "content"},
		{"whitespace collapsed", "a    \t b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.input); got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRetrieveMixedOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("<html><body><p>page content</p></body></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	r := NewHTTP()
	docs := r.Retrieve(context.Background(), []string{server.URL + "/ok", server.URL + "/missing", ""})

	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3 (one per url, failures included)", len(docs))
	}

	if !docs[0].Metadata.Success {
		t.Errorf("expected success for /ok, got error %q", docs[0].Metadata.Error)
	}
	if !strings.Contains(docs[0].TextContent, "page content") {
		t.Errorf("text content %q missing page body", docs[0].TextContent)
	}

	if docs[1].Metadata.Success {
		t.Error("expected failure metadata for 404 response")
	}
	if docs[1].URL != server.URL+"/missing" {
		t.Errorf("document order not preserved: %q", docs[1].URL)
	}

	if docs[2].Metadata.Success || docs[2].Metadata.Error == "" {
		t.Error("expected failure metadata for empty url")
	}
}

func TestRetrieveEmptyURLList(t *testing.T) {
	r := NewHTTP()
	if docs := r.Retrieve(context.Background(), nil); len(docs) != 0 {
		t.Errorf("got %d documents for empty url list, want 0", len(docs))
	}
}
