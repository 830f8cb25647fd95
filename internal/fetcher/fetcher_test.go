package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/notable/internal/errs"
	"github.com/pbaille/notable/internal/fetcher"
)

const samplePage = `<html>
<head><title>Sample Page</title><style>p { color: red }</style></head>
<body>
<nav>skip me</nav>
<h1>Heading</h1>
<p>First paragraph.</p>
<script>var skipped = true;</script>
<p>Second paragraph.</p>
</body>
</html>`

func TestParse(t *testing.T) {
	page := fetcher.Parse(samplePage)

	assert.Equal(t, "Sample Page", page.Title)
	assert.Contains(t, page.Text, "Heading")
	assert.Contains(t, page.Text, "First paragraph.")
	assert.Contains(t, page.Text, "Second paragraph.")
	assert.NotContains(t, page.Text, "skip me")
	assert.NotContains(t, page.Text, "skipped")
	assert.NotContains(t, page.Text, "color: red")
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	page, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Sample Page", page.Title)
	assert.Contains(t, page.Text, "First paragraph.")
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeFetchUpstream))
}

func TestFetch_RejectsBadScheme(t *testing.T) {
	_, err := fetcher.Fetch(context.Background(), "ftp://example.com/file")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestIsURL(t *testing.T) {
	assert.True(t, fetcher.IsURL("https://example.com"))
	assert.True(t, fetcher.IsURL("  www.example.com"))
	assert.False(t, fetcher.IsURL("just some text"))
}
