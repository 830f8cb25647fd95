// Package fetcher captures web pages as note material.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pbaille/notable/internal/errs"
)

// Page is the note-ready form of a fetched document.
type Page struct {
	Title string
	Text  string
}

// Fetch retrieves a URL and extracts its title and readable text.
func Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Wrapf(err, errs.CodeFetchInvalid, "invalid URL %q", rawURL)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errs.Errorf(errs.CodeFetchInvalid, "unsupported scheme: %s", u.Scheme)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeFetchInvalid, "creating request")
	}
	req.Header.Set("User-Agent", "notable/1.0 (note-taking)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeFetchUpstream, "fetching page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Errorf(errs.CodeFetchUpstream, "HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// 5MB cap on the raw document.
	limited := io.LimitReader(resp.Body, 5*1024*1024)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeFetchUpstream, "reading body")
	}

	page := Parse(string(body))
	if page.Text == "" {
		return nil, errs.Errorf(errs.CodeFetchUpstream, "no text content found at %s", u)
	}
	if page.Title == "" {
		page.Title = u.Host + u.Path
	}

	return page, nil
}

// IsURL checks whether a string looks like a URL.
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "www.")
}

// Parse extracts the document title and readable text from HTML.
func Parse(htmlContent string) *Page {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return &Page{}
	}

	var sb strings.Builder
	var title string

	// Tags to skip (non-content)
	skipTags := map[string]bool{
		"script": true, "style": true, "nav": true,
		"header": true, "footer": true, "aside": true,
		"noscript": true, "iframe": true,
	}

	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "br":
				sb.WriteString("\n")
			}
		}
	}

	extract(doc)

	// Collapse whitespace and cap at 10KB of text.
	text := strings.Join(strings.Fields(sb.String()), " ")
	if len(text) > 10*1024 {
		text = text[:10*1024] + "..."
	}

	return &Page{Title: title, Text: strings.TrimSpace(text)}
}
