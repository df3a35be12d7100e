package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"vinylscout/internal/catalog"
	"vinylscout/internal/fetch"
)

// aladinAdapter queries the Aladin TTB ItemSearch API.
type aladinAdapter struct {
	base
}

type aladinResponse struct {
	ErrorCode    int          `json:"errorCode"`
	ErrorMessage string       `json:"errorMessage"`
	Items        []aladinItem `json:"item"`
}

type aladinItem struct {
	Title        string      `json:"title"`
	Link         string      `json:"link"`
	PriceSales   json.Number `json:"priceSales"`
	CategoryName string      `json:"categoryName"`
	MallType     string      `json:"mallType"`
	StockStatus  string      `json:"stockStatus"`
}

func (a *aladinAdapter) Collect(ctx context.Context, id catalog.Identifier) Result {
	return a.collect(ctx, id, a.search)
}

func (a *aladinAdapter) search(ctx context.Context, query string) (*hit, error) {
	target, err := searchURL(a.settings.BaseURL, url.Values{
		"ttbkey":       {a.settings.APIKey},
		"Query":        {query},
		"QueryType":    {"Keyword"},
		"SearchTarget": {"Music"},
		"MaxResults":   {"5"},
		"start":        {"1"},
		"output":       {"js"},
		"Version":      {"20131101"},
	})
	if err != nil {
		return nil, err
	}
	doc, err := a.fetcher.Fetch(ctx, fetch.Request{Vendor: a.profile.Name, URL: target})
	if err != nil {
		return nil, err
	}

	// output=js sometimes ends the document with a statement terminator.
	body := strings.TrimSuffix(strings.TrimSpace(doc.Body), ";")
	var payload aladinResponse
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("decode aladin response: %w", err)
	}
	if payload.ErrorCode != 0 {
		return nil, fmt.Errorf("aladin error %d: %s", payload.ErrorCode, payload.ErrorMessage)
	}
	if len(payload.Items) == 0 {
		return nil, nil
	}
	item := payload.Items[0]
	return &hit{
		Title:    stripMarkup(item.Title),
		Category: strings.TrimSpace(item.CategoryName + " " + item.MallType),
		RawPrice: item.PriceSales.String(),
		URL:      strings.TrimSpace(item.Link),
		InStock:  strings.TrimSpace(item.StockStatus) == "",
	}, nil
}
