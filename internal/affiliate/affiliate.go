// Package affiliate decorates offer links with partner tracking parameters.
package affiliate

import (
	"net/url"
	"strings"

	"vinylscout/internal/catalog"
)

// BuildURL returns the offer URL carrying {AffiliateParamKey}={AffiliateCode}.
// An existing value for the key is overwritten and the other parameters keep
// their order. URLs that are not absolute http(s) URLs get the pair appended
// as text. Offers without a code or key are returned unchanged.
func BuildURL(offer catalog.Offer) string {
	link := strings.TrimSpace(offer.URL)
	key := strings.TrimSpace(offer.AffiliateParamKey)
	code := strings.TrimSpace(offer.AffiliateCode)
	if link == "" || key == "" || code == "" {
		return link
	}

	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return appendNaive(link, key, code)
	}
	u.RawQuery = setParam(u.RawQuery, key, code)
	return u.String()
}

func setParam(rawQuery, key, value string) string {
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if rawQuery == "" {
		return pair
	}
	parts := strings.Split(rawQuery, "&")
	out := make([]string, 0, len(parts)+1)
	replaced := false
	for _, part := range parts {
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, "=")
		if decoded, err := url.QueryUnescape(name); err == nil && decoded == key {
			if !replaced {
				out = append(out, pair)
				replaced = true
			}
			continue
		}
		out = append(out, part)
	}
	if !replaced {
		out = append(out, pair)
	}
	return strings.Join(out, "&")
}

func appendNaive(link, key, code string) string {
	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	return link + sep + key + "=" + code
}
