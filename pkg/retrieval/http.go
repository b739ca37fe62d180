// Package retrieval turns URLs into plain-text documents. Failures are
// reported per document, never as an error: a branch of research that cannot
// fetch its sources simply proceeds with fewer documents.
package retrieval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
)

// maxDocumentBytes caps extracted text per page to keep prompts bounded.
const maxDocumentBytes = 32 * 1024

// DocumentMetadata records the outcome of fetching one URL.
type DocumentMetadata struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Document is one retrieved page.
type Document struct {
	URL         string           `json:"url"`
	TextContent string           `json:"textContent"`
	Metadata    DocumentMetadata `json:"metadata"`
}

// Retriever fetches documents for a set of URLs. Implementations must not
// return fewer than zero documents on failure paths; a failed URL yields a
// Document with Metadata.Success=false.
type Retriever interface {
	Retrieve(ctx context.Context, urls []string) []Document
}

// HTTPRetriever fetches pages over plain HTTP GET and strips them to text.
// When OCR is set, .pdf URLs are routed through it instead.
type HTTPRetriever struct {
	Client      *http.Client
	Logger      *slog.Logger
	Concurrency int
	OCR         *OCRClient
}

// NewHTTP creates a retriever with a modest timeout and fetch concurrency.
func NewHTTP() *HTTPRetriever {
	return &HTTPRetriever{
		Client:      &http.Client{Timeout: 15 * time.Second},
		Logger:      slog.Default(),
		Concurrency: 4,
	}
}

// Retrieve fetches every URL concurrently and returns one Document per URL,
// in input order. It never returns an error; per-URL failures are recorded in
// the document metadata.
func (r *HTTPRetriever) Retrieve(ctx context.Context, urls []string) []Document {
	docs := make([]Document, len(urls))

	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			text, err := r.fetch(ctx, url)
			if err != nil {
				r.Logger.Warn("Fetch failed", "url", url, "error", err)
				docs[i] = Document{URL: url, Metadata: DocumentMetadata{Error: err.Error()}}
				return
			}
			docs[i] = Document{URL: url, TextContent: text, Metadata: DocumentMetadata{Success: true}}
		}(i, url)
	}
	wg.Wait()

	return docs
}

func (r *HTTPRetriever) fetch(ctx context.Context, url string) (string, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return "", fmt.Errorf("empty url")
	}

	if r.OCR != nil && strings.HasSuffix(strings.ToLower(trimmed), ".pdf") {
		return r.OCR.ExtractText(ctx, trimmed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	text := stripHTML(string(body))
	if len(text) > maxDocumentBytes {
		text = text[:maxDocumentBytes]
	}
	return text, nil
}

var (
	reScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reNav        = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	reHeader     = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	reFooter     = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	reTags       = regexp.MustCompile(`<[^>]+>`)
	reWhitespace = regexp.MustCompile(`[ \t]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
)

// stripHTML removes scripts, styles and page chrome, then all tags.
func stripHTML(html string) string {
	s := reScript.ReplaceAllString(html, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reNav.ReplaceAllString(s, "")
	s = reHeader.ReplaceAllString(s, "")
	s = reFooter.ReplaceAllString(s, "")
	s = reTags.ReplaceAllString(s, " ")
	s = reWhitespace.ReplaceAllString(s, " ")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
