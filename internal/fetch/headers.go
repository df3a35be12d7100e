package fetch

import (
	"net/http"
	"net/url"
)

const (
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultAcceptLanguage = "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7"
	htmlAccept            = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
)

// applyBrowserHeaders shapes the request like a desktop Chrome navigation and
// then lays the per-request headers on top.
func (c *Client) applyBrowserHeaders(req *http.Request, extra http.Header) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", htmlAccept)
	req.Header.Set("Accept-Language", c.acceptLanguage)
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("Sec-Fetch-User", "?1")
	if origin := originOf(req.URL); origin != "" {
		req.Header.Set("Referer", origin+"/")
	}
	for key, values := range extra {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
}

func originOf(u *url.URL) string {
	if u == nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
