package headers

import (
	"bytes"
	"sort"
	"strings"
)

// Header names used by the server. Keys are stored lower-cased.
const (
	SessionID          = "session_id"
	Cookie             = "cookie"
	SetCookie          = "set-cookie"
	Date               = "date"
	ContentType        = "content-type"
	ContentLength      = "content-length"
	AllowOrigin        = "access-control-allow-origin"
	AllowMethods       = "access-control-allow-methods"
	AllowHeaders       = "access-control-allow-headers"
	AllowCredentials   = "access-control-allow-credentials"
	MaxAge             = "access-control-max-age"
	ExposeHeaders      = "access-control-expose-headers"
	Host               = "host"
	Origin             = "origin"
	RequestMethod      = "access-control-request-method"
	RequestHeaders     = "access-control-request-headers"
	sessionCookieAttrs = "HttpOnly; SameSite=Strict; Max-Age=3600; Path=/"
)

// Headers maps lower-cased header names to their raw value.
// Insertion overwrites; order is irrelevant.
type Headers struct {
	headers map[string]string
}

func NewHeaders() *Headers {
	return &Headers{
		headers: make(map[string]string),
	}
}

// Insert sets key to value and returns the previous value, if any.
func (h *Headers) Insert(key, value string) (string, bool) {
	key = strings.ToLower(key)
	prev, ok := h.headers[key]
	h.headers[key] = value
	return prev, ok
}

// With inserts every pair and returns h for chaining.
func (h *Headers) With(pairs ...[2]string) *Headers {
	for _, p := range pairs {
		h.Insert(p[0], p[1])
	}
	return h
}

// Get returns the value for a header
func (h *Headers) Get(key string) (string, bool) {
	v, ok := h.headers[strings.ToLower(key)]
	return v, ok
}

// Del removes a header
func (h *Headers) Del(key string) {
	delete(h.headers, strings.ToLower(key))
}

// Len returns the number of stored headers
func (h *Headers) Len() int {
	return len(h.headers)
}

// All returns a copy of the stored headers
func (h *Headers) All() map[string]string {
	out := make(map[string]string, len(h.headers))
	for k, v := range h.headers {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy
func (h *Headers) Clone() *Headers {
	return &Headers{headers: h.All()}
}

// Cookie finds name inside the cookie header and returns what follows it
// up to the next ';' (or the end), without the '=' separator.
func (h *Headers) Cookie(name string) (string, bool) {
	raw, ok := h.Get(Cookie)
	if !ok || name == "" {
		return "", false
	}

	idx := strings.Index(raw, name)
	if idx == -1 {
		return "", false
	}

	rest := strings.TrimPrefix(raw[idx+len(name):], "=")
	if end := strings.IndexByte(rest, ';'); end != -1 {
		rest = rest[:end]
	}
	return rest, true
}

// SetSession adds a Set-Cookie directive carrying the session id and
// exposes the session header to cross-origin clients.
func (h *Headers) SetSession(sessionID string) *Headers {
	h.Insert(SetCookie, SessionID+"="+sessionID+"; "+sessionCookieAttrs)
	h.Insert(ExposeHeaders, SessionID)
	return h
}

// String joins every header as "key: value" separated by CRLF.
// Keys are sorted so the output is stable.
func (h *Headers) String() string {
	keys := make([]string, 0, len(h.headers))
	for k := range h.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+h.headers[k])
	}
	return strings.Join(lines, "\r\n")
}

// Parse reads a block of header lines. Each line is split on the first ':'
// into a lower-cased name and the value exactly as sent (leading space
// included). Lines without a colon are skipped and counted.
func (h *Headers) Parse(block []byte) (skipped int) {
	for len(block) > 0 {
		var line []byte
		if idx := bytes.IndexByte(block, '\n'); idx != -1 {
			line, block = block[:idx], block[idx+1:]
		} else {
			line, block = block, nil
		}
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}

		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			skipped++
			continue
		}
		h.Insert(string(line[:colon]), string(line[colon+1:]))
	}
	return skipped
}
