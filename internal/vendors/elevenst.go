package vendors

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"

	"vinylscout/internal/catalog"
	"vinylscout/internal/fetch"
	"vinylscout/internal/matching"
)

// elevenstAdapter queries the 11st OpenAPI product search.
type elevenstAdapter struct {
	base
}

type elevenstResponse struct {
	XMLName  xml.Name          `xml:"ProductSearchResponse"`
	Products []elevenstProduct `xml:"Products>Product"`
}

type elevenstProduct struct {
	ProductCode   string `xml:"ProductCode"`
	ProductName   string `xml:"ProductName"`
	ProductPrice  string `xml:"ProductPrice"`
	SalePrice     string `xml:"SalePrice"`
	DetailPageURL string `xml:"DetailPageUrl"`
	Delivery      string `xml:"Delivery"`
	SellerNick    string `xml:"SellerNick"`
}

func (a *elevenstAdapter) Collect(ctx context.Context, id catalog.Identifier) Result {
	return a.collect(ctx, id, a.search)
}

func (a *elevenstAdapter) search(ctx context.Context, query string) (*hit, error) {
	target, err := searchURL(a.settings.BaseURL, url.Values{
		"key":      {a.settings.APIKey},
		"apiCode":  {"ProductSearch"},
		"keyword":  {query},
		"pageSize": {"5"},
		"sortCd":   {"A"},
	})
	if err != nil {
		return nil, err
	}
	encoding := a.settings.Encoding
	if encoding == "" {
		encoding = "euc-kr"
	}
	doc, err := a.fetcher.Fetch(ctx, fetch.Request{Vendor: a.profile.Name, URL: target, Encoding: encoding})
	if err != nil {
		return nil, err
	}

	var payload elevenstResponse
	decoder := xml.NewDecoder(strings.NewReader(doc.Body))
	// The fetch layer already decoded the body; ignore the declared charset.
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode elevenst response: %w", err)
	}
	if len(payload.Products) == 0 {
		return nil, nil
	}
	product := payload.Products[0]
	price := product.SalePrice
	if strings.TrimSpace(price) == "" {
		price = product.ProductPrice
	}
	return &hit{
		Title:       strings.TrimSpace(product.ProductName),
		RawPrice:    price,
		URL:         strings.TrimSpace(product.DetailPageURL),
		InStock:     true,
		ShippingFee: deliveryFee(product.Delivery),
	}, nil
}

// deliveryFee reads the per-listing delivery text. Free delivery yields zero;
// an amount yields that fee; anything else leaves the configured fee in place.
func deliveryFee(text string) *int {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.Contains(text, "무료") || strings.Contains(strings.ToLower(text), "free") {
		fee := 0
		return &fee
	}
	fee, err := matching.ParsePrice(text)
	if err != nil {
		return nil
	}
	return &fee
}
