// Package source holds the upstream ingestion producers: extractors that
// turn web pages and PDFs into plain text for the ingestion pipeline.
package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/evermem/evermem-go/core"
)

// WebExtractor fetches a page and extracts its paragraph text.
type WebExtractor struct {
	client *http.Client
}

// NewWebExtractor creates an extractor with a bounded HTTP client.
func NewWebExtractor() *WebExtractor {
	return &WebExtractor{client: &http.Client{Timeout: 30 * time.Second}}
}

// Extract returns the joined text of the page's <p> elements. Pages with
// no paragraph text fail validation rather than ingesting nav chrome.
func (w *WebExtractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	paragraphs := paragraphText(doc)
	if len(paragraphs) == 0 {
		return "", fmt.Errorf("%w: no paragraph text at %s", core.ErrValidation, url)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func paragraphText(doc *html.Node) []string {
	var paragraphs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			if text := strings.Join(strings.Fields(textContent(n)), " "); text != "" {
				paragraphs = append(paragraphs, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return paragraphs
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
