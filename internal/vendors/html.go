package vendors

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vinylscout/internal/catalog"
	"vinylscout/internal/fetch"
)

// htmlAdapter scrapes a vendor's human-facing search page.
type htmlAdapter struct {
	base
	spec      SelectorSpec
	selectors pageSelectors
}

func newHTMLAdapter(b base, spec SelectorSpec) *htmlAdapter {
	return &htmlAdapter{base: b, spec: spec, selectors: compileSelectors(spec)}
}

func (a *htmlAdapter) Collect(ctx context.Context, id catalog.Identifier) Result {
	return a.collect(ctx, id, a.search)
}

func (a *htmlAdapter) search(ctx context.Context, query string) (*hit, error) {
	params := url.Values{}
	for key, value := range a.spec.Params {
		params.Set(key, value)
	}
	params.Set(a.spec.QueryParam, query)
	target, err := searchURL(a.settings.BaseURL, params)
	if err != nil {
		return nil, err
	}

	doc, err := a.fetcher.Fetch(ctx, fetch.Request{
		Vendor:   a.profile.Name,
		URL:      target,
		Encoding: a.settings.Encoding,
	})
	if err != nil {
		return nil, err
	}
	return a.parse(doc)
}

// parse extracts the first hit from a search page. A page without results
// yields a nil hit.
func (a *htmlAdapter) parse(doc *fetch.Document) (*hit, error) {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", a.profile.Name, err)
	}
	item := a.selectors.firstItem(page)
	if item == nil {
		return nil, nil
	}
	return &hit{
		Title:    a.selectors.title.first(item),
		Category: a.selectors.category.first(item),
		RawPrice: a.selectors.price.first(item),
		URL:      resolveURL(doc.URL, a.selectors.link.first(item)),
		InStock:  !a.selectors.isSoldOut(item),
	}, nil
}
