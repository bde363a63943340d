package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/satslist/satslist/internal/models"
)

// Extractor fetches a shop page and scrapes best-effort product metadata from
// its OpenGraph and product meta tags. Every field is optional; failures leave
// fields blank for manual entry.
type Extractor struct {
	http     *http.Client
	proxyURL string
	log      *logrus.Entry
}

// NewExtractor creates an extractor. When proxyURL is non-empty, pages are
// fetched through it (proxyURL + url-encoded target).
func NewExtractor(proxyURL string, log *logrus.Entry) *Extractor {
	return &Extractor{
		http:     &http.Client{Timeout: 15 * time.Second},
		proxyURL: proxyURL,
		log:      log,
	}
}

// Fetch scrapes the given product page.
func (e *Extractor) Fetch(ctx context.Context, rawURL string) (*models.ProductMetadata, error) {
	target, err := url.Parse(rawURL)
	if err != nil || target.Hostname() == "" {
		return nil, fmt.Errorf("invalid product URL %q", rawURL)
	}

	fetchURL := rawURL
	if e.proxyURL != "" {
		fetchURL = e.proxyURL + url.QueryEscape(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata request: %w", err)
	}
	req.Header.Set("User-Agent", "satslist/1.0")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to load remote page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote page returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse remote page: %w", err)
	}

	meta, pageTitle := collectMeta(doc)

	title := firstMeta(meta, "og:title", "twitter:title")
	if title == "" {
		title = pageTitle
	}
	if title == "" {
		title = target.Hostname()
	}

	return &models.ProductMetadata{
		Title:       title,
		Description: firstMeta(meta, "og:description", "description"),
		Image:       firstMeta(meta, "og:image", "twitter:image"),
		PriceEUR:    parsePrice(firstMeta(meta, "product:price:amount", "og:price:amount")),
		Currency:    firstMeta(meta, "product:price:currency", "og:price:currency"),
		Source:      target.Hostname(),
	}, nil
}

// collectMeta walks the document gathering meta tag content keyed by
// property/name, plus the <title> text.
func collectMeta(doc *html.Node) (map[string]string, string) {
	meta := make(map[string]string)
	var pageTitle string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var key, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "property", "name":
						key = attr.Val
					case "content", "value":
						content = attr.Val
					}
				}
				if key != "" && content != "" {
					if _, exists := meta[key]; !exists {
						meta[key] = content
					}
				}
			case "title":
				if pageTitle == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					pageTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return meta, pageTitle
}

func firstMeta(meta map[string]string, keys ...string) string {
	for _, key := range keys {
		if v, ok := meta[key]; ok {
			return v
		}
	}
	return ""
}

// parsePrice strips currency symbols and thousands separators from a scraped
// price string. Returns 0 when the value is not numeric.
func parsePrice(value string) float64 {
	if value == "" {
		return 0
	}
	cleaned := strings.NewReplacer("€", "", "$", "", "£", "", ",", "").Replace(value)
	parsed, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0
	}
	return parsed
}
