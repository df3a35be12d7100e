package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"vinylscout/internal/catalog"
	"vinylscout/internal/fetch"
)

var markupTag = regexp.MustCompile(`<[^>]*>`)

// naverAdapter queries the Naver Shopping search API.
type naverAdapter struct {
	base
}

type naverResponse struct {
	Items []naverItem `json:"items"`
}

type naverItem struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	LPrice    string `json:"lprice"`
	MallName  string `json:"mallName"`
	ProductID string `json:"productId"`
	Category1 string `json:"category1"`
	Category2 string `json:"category2"`
	Category3 string `json:"category3"`
	Category4 string `json:"category4"`
}

func (a *naverAdapter) Collect(ctx context.Context, id catalog.Identifier) Result {
	return a.collect(ctx, id, a.search)
}

func (a *naverAdapter) search(ctx context.Context, query string) (*hit, error) {
	target, err := searchURL(a.settings.BaseURL, url.Values{
		"query":   {query},
		"display": {"10"},
		"sort":    {"sim"},
	})
	if err != nil {
		return nil, err
	}
	doc, err := a.fetcher.Fetch(ctx, fetch.Request{
		Vendor: a.profile.Name,
		URL:    target,
		Header: http.Header{
			"Accept":                {"application/json"},
			"X-Naver-Client-Id":     {a.settings.ClientID},
			"X-Naver-Client-Secret": {a.settings.ClientSecret},
		},
	})
	if err != nil {
		return nil, err
	}

	var payload naverResponse
	if err := json.Unmarshal([]byte(doc.Body), &payload); err != nil {
		return nil, fmt.Errorf("decode naver response: %w", err)
	}
	if len(payload.Items) == 0 {
		return nil, nil
	}
	item := payload.Items[0]
	category := strings.Join(strings.Fields(strings.Join([]string{
		item.Category1, item.Category2, item.Category3, item.Category4,
	}, " ")), " ")
	return &hit{
		Title:    stripMarkup(item.Title),
		Category: category,
		RawPrice: item.LPrice,
		URL:      strings.TrimSpace(item.Link),
		InStock:  true,
	}, nil
}

// stripMarkup removes the <b> highlight tags search APIs wrap around matches.
func stripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(markupTag.ReplaceAllString(s, "")))
}
