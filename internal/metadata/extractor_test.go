package metadata

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

const productPage = `<!DOCTYPE html>
<html>
<head>
<title>Fallback page title</title>
<meta property="og:title" content="PlayStation 5 Console" />
<meta property="og:description" content="Next-gen gaming" />
<meta property="og:image" content="https://shop.example/ps5.jpg" />
<meta property="product:price:amount" content="€1,299.00" />
<meta property="product:price:currency" content="EUR" />
</head>
<body><h1>Shop</h1></body>
</html>`

func TestFetchScrapesOpenGraphTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "satslist/1.0", r.Header.Get("User-Agent"))
		io.WriteString(w, productPage)
	}))
	defer server.Close()

	e := NewExtractor("", testLog())
	meta, err := e.Fetch(context.Background(), server.URL+"/product/ps5")
	require.NoError(t, err)

	assert.Equal(t, "PlayStation 5 Console", meta.Title)
	assert.Equal(t, "Next-gen gaming", meta.Description)
	assert.Equal(t, "https://shop.example/ps5.jpg", meta.Image)
	assert.InDelta(t, 1299.00, meta.PriceEUR, 0.001)
	assert.Equal(t, "EUR", meta.Currency)

	host, err := url.Parse(server.URL)
	require.NoError(t, err)
	assert.Equal(t, host.Hostname(), meta.Source)
}

func TestFetchFallsBackToPageTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head><title>Plain page</title></head><body></body></html>`)
	}))
	defer server.Close()

	e := NewExtractor("", testLog())
	meta, err := e.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Plain page", meta.Title)
	assert.Empty(t, meta.Image)
	assert.Zero(t, meta.PriceEUR)
}

func TestFetchFallsBackToHostname(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head></head><body>no metadata at all</body></html>`)
	}))
	defer server.Close()

	e := NewExtractor("", testLog())
	meta, err := e.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	host, err := url.Parse(server.URL)
	require.NoError(t, err)
	assert.Equal(t, host.Hostname(), meta.Title)
}

func TestFetchRejectsInvalidURL(t *testing.T) {
	e := NewExtractor("", testLog())

	_, err := e.Fetch(context.Background(), "not a url")
	assert.Error(t, err)

	_, err = e.Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestFetchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := NewExtractor("", testLog())
	_, err := e.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchThroughProxy(t *testing.T) {
	var proxied string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied = r.URL.RawQuery
		io.WriteString(w, productPage)
	}))
	defer server.Close()

	e := NewExtractor(server.URL+"/fetch?url=", testLog())
	meta, err := e.Fetch(context.Background(), "https://shop.example/ps5")
	require.NoError(t, err)

	assert.Equal(t, "url="+url.QueryEscape("https://shop.example/ps5"), proxied)
	// The source reflects the product page, not the proxy.
	assert.Equal(t, "shop.example", meta.Source)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"€1,299.00", 1299.00},
		{"$499.99", 499.99},
		{"£20", 20},
		{" 15.5 ", 15.5},
		{"", 0},
		{"call us", 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, parsePrice(tt.in), 0.001, "input %q", tt.in)
	}
}
