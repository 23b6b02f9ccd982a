package helpers

import (
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

const (
	// DefaultUserAgent identifies requests as a desktop Chrome browser
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// DefaultAcceptLanguage prefers Japanese, then English
	DefaultAcceptLanguage = "ja,en-US;q=0.9,en;q=0.8"
	// DefaultAccept is the navigation Accept header of a desktop browser
	DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
)

// BrowserHeaders returns the browser-like header set sent with every static fetch.
// Empty arguments fall back to the defaults.
func BrowserHeaders(userAgent, acceptLanguage string) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if acceptLanguage == "" {
		acceptLanguage = DefaultAcceptLanguage
	}

	h := make(http.Header)
	h.Set("User-Agent", userAgent)
	h.Set("Accept", DefaultAccept)
	h.Set("Accept-Language", acceptLanguage)
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

// ApplyHeaders copies h onto the request, replacing existing values
func ApplyHeaders(req *http.Request, h http.Header) {
	for k, v := range h {
		req.Header[k] = append([]string(nil), v...)
	}
}

// CharsetFromContentType returns the charset parameter of a Content-Type value
func CharsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

// DecodeBody converts a response body to UTF-8 and returns it with the
// resolved encoding name.
//
// The declared charset is trusted unless it is missing or belongs to the
// ISO-8859-1 family (which WHATWG maps to windows-1252), the transport
// default for text/* bodies. In that case the encoding is re-detected from
// the content itself, and a body that is valid UTF-8 throughout is UTF-8.
func DecodeBody(body []byte, contentType string) (string, string, error) {
	enc, name := charset.Lookup(CharsetFromContentType(contentType))
	if enc == nil || name == "windows-1252" {
		var certain bool
		enc, name, certain = charset.DetermineEncoding(body, "")
		// detection only samples the first 1024 bytes
		if !certain && name == "windows-1252" && utf8.Valid(body) {
			name = "utf-8"
		}
	}

	if name == "utf-8" {
		if utf8.Valid(body) {
			return string(body), name, nil
		}
		return strings.ToValidUTF8(string(body), string(utf8.RuneError)), name, nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", name, err
	}
	return string(decoded), name, nil
}
