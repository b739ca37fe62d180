package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OCRClient extracts text from PDF documents through the Mistral OCR API.
// HTTPRetriever routes .pdf URLs through it when configured.
type OCRClient struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

// NewOCR creates an OCR client. Returns nil when apiKey is empty so callers
// can pass the result straight into HTTPRetriever.OCR.
func NewOCR(client *http.Client, apiKey string) *OCRClient {
	if apiKey == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OCRClient{
		Client:  client,
		BaseURL: "https://api.mistral.ai/v1/ocr",
		APIKey:  apiKey,
	}
}

type ocrPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type ocrResponse struct {
	Pages []ocrPage `json:"pages"`
}

// ExtractText runs the document at url through OCR and returns its pages as
// markdown text.
func (o *OCRClient) ExtractText(ctx context.Context, url string) (string, error) {
	url = strings.Replace(url, "http://", "https://", 1)

	reqBody := map[string]interface{}{
		"model": "mistral-ocr-latest",
		"document": map[string]string{
			"type":         "document_url",
			"document_url": url,
		},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status: %s, body: %s", resp.Status, string(body))
	}

	var ocr ocrResponse
	if err := json.Unmarshal(body, &ocr); err != nil {
		return "", fmt.Errorf("failed to unmarshal OCR response: %w", err)
	}

	var b strings.Builder
	for _, page := range ocr.Pages {
		b.WriteString(page.Markdown)
		b.WriteString("\n\n")
	}
	text := strings.TrimSpace(b.String())
	if len(text) > maxDocumentBytes {
		text = text[:maxDocumentBytes]
	}
	return text, nil
}
