package fetch

import (
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 8 << 20

// readBody reads and decodes a response body to UTF-8. An explicit override
// wins; HTML falls back to charset sniffing (Content-Type, BOM, meta tags);
// other content honours the Content-Type charset and defaults to UTF-8.
func readBody(body io.Reader, contentType, override string) (string, error) {
	limited := io.LimitReader(body, maxBodyBytes)

	if enc := lookupOverride(override); enc != nil {
		decoded, err := io.ReadAll(transform.NewReader(limited, enc.NewDecoder()))
		if err != nil {
			return "", fmt.Errorf("decode %s body: %w", override, err)
		}
		return string(decoded), nil
	}

	raw, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	mediaType, params, _ := mime.ParseMediaType(contentType)
	if cs := params["charset"]; cs != "" {
		if enc, _ := charset.Lookup(cs); enc != nil {
			return decodeWith(enc, raw)
		}
	}
	if strings.Contains(mediaType, "html") || mediaType == "" {
		enc, name, _ := charset.DetermineEncoding(raw, contentType)
		if name != "windows-1252" || !utf8.Valid(raw) {
			return decodeWith(enc, raw)
		}
	}
	return string(raw), nil
}

func lookupOverride(name string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil
	case "euc-kr", "cp949", "ks_c_5601-1987":
		return korean.EUCKR
	default:
		enc, _ := charset.Lookup(name)
		return enc
	}
}

func decodeWith(enc encoding.Encoding, raw []byte) (string, error) {
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(decoded), nil
}
