package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	defaultMaxPageBytes = 2 << 20
	defaultUserAgent    = "tdsta/1.0 (+https://tds.s-anand.net/)"
)

// HTTPSiteProvider fetches course-site pages and converts them to markdown
// content items. A pass succeeds only if every page is fetched.
type HTTPSiteProvider struct {
	Pages     []string
	Client    *http.Client
	UserAgent string
	MaxBytes  int64

	conv *converter.Converter
}

// NewHTTPSiteProvider creates a provider for the given page URLs.
func NewHTTPSiteProvider(pages []string, client *http.Client) *HTTPSiteProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSiteProvider{
		Pages:     append([]string(nil), pages...),
		Client:    client,
		UserAgent: defaultUserAgent,
		MaxBytes:  defaultMaxPageBytes,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// FetchSiteContent implements SiteProvider.
func (p *HTTPSiteProvider) FetchSiteContent(ctx context.Context) ([]ContentItem, error) {
	items := make([]ContentItem, 0, len(p.Pages))
	for _, page := range p.Pages {
		item, err := p.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *HTTPSiteProvider) fetchPage(ctx context.Context, page string) (ContentItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return ContentItem{}, fmt.Errorf("%w: build request %s: %w", ErrSourceFailure, page, err)
	}
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := p.Client.Do(req)
	if err != nil {
		return ContentItem{}, fmt.Errorf("%w: fetch %s: %w", ErrSourceFailure, page, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ContentItem{}, fmt.Errorf("%w: fetch %s: status %d", ErrSourceFailure, page, resp.StatusCode)
	}

	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxPageBytes
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return ContentItem{}, fmt.Errorf("%w: read %s: %w", ErrSourceFailure, page, err)
	}
	if int64(len(raw)) > maxBytes {
		return ContentItem{}, fmt.Errorf("%w: fetch %s: page exceeds %d bytes", ErrSourceFailure, page, maxBytes)
	}

	conv := p.conv
	if conv == nil {
		conv = converter.NewConverter(converter.WithPlugins(base.NewBasePlugin(), commonmark.NewCommonmarkPlugin()))
	}
	body, err := conv.ConvertString(string(raw), converter.WithDomain(page))
	if err != nil {
		return ContentItem{}, fmt.Errorf("%w: convert %s: %w", ErrSourceFailure, page, err)
	}

	title := pageTitle(raw)
	if title == "" {
		title = page
	}
	return ContentItem{
		ID:       page,
		Title:    title,
		Body:     strings.TrimSpace(body),
		URL:      page,
		Category: SourceSite,
	}, nil
}

// pageTitle returns the text of the first <title> element.
func pageTitle(raw []byte) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			return strings.Join(strings.Fields(sb.String()), " ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(doc)
}
