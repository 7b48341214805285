package headers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderParse(t *testing.T) {
	// Test: Valid single header, value kept as sent
	h := NewHeaders()
	skipped := h.Parse([]byte("Host: localhost:42069\r\n"))
	assert.Equal(t, 0, skipped)
	val, ok := h.Get("host")
	assert.True(t, ok)
	assert.Equal(t, " localhost:42069", val)

	// Test: Case insensitive storage
	h = NewHeaders()
	h.Parse([]byte("Content-Type: application/json\r\n"))
	val, ok = h.Get("CONTENT-TYPE")
	assert.True(t, ok)
	assert.Equal(t, " application/json", val)
	_, ok = h.All()["content-type"]
	assert.True(t, ok)

	// Test: Multiple headers, last line without CRLF
	h = NewHeaders()
	h.Parse([]byte("Host: example.com\r\nContent-Type: text/html\r\nContent-Length: 42"))
	assert.Equal(t, 3, h.Len())
	val, _ = h.Get("content-length")
	assert.Equal(t, " 42", val)

	// Test: Value split on the first colon only
	h = NewHeaders()
	h.Parse([]byte("Origin: http://localhost:8080\r\n"))
	val, _ = h.Get("origin")
	assert.Equal(t, " http://localhost:8080", val)

	// Test: Duplicate headers overwrite
	h = NewHeaders()
	h.Parse([]byte("X-Custom: a\r\nX-Custom: b\r\n"))
	val, _ = h.Get("x-custom")
	assert.Equal(t, " b", val)

	// Test: No colon in header is skipped
	h = NewHeaders()
	skipped = h.Parse([]byte("InvalidHeader\r\nHost: x\r\n"))
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, h.Len())

	// Test: Empty header value (allowed)
	h = NewHeaders()
	h.Parse([]byte("X-Empty:\r\n"))
	val, ok = h.Get("x-empty")
	assert.True(t, ok)
	assert.Equal(t, "", val)
}

func TestInsertReturnsPrevious(t *testing.T) {
	h := NewHeaders()

	prev, ok := h.Insert("X-Custom", "value1")
	assert.False(t, ok)
	assert.Equal(t, "", prev)

	prev, ok = h.Insert("x-custom", "value2")
	assert.True(t, ok)
	assert.Equal(t, "value1", prev)

	val, _ := h.Get("X-CUSTOM")
	assert.Equal(t, "value2", val)

	h.Del("X-Custom")
	_, ok = h.Get("x-custom")
	assert.False(t, ok)
}

func TestCookie(t *testing.T) {
	h := NewHeaders()
	h.Insert(Cookie, "session_id=abc123; other=x")

	val, ok := h.Cookie("session_id")
	require.True(t, ok)
	assert.Equal(t, "abc123", val)

	val, ok = h.Cookie("other")
	require.True(t, ok)
	assert.Equal(t, "x", val)

	_, ok = h.Cookie("missing")
	assert.False(t, ok)

	// Value as stored by the parser keeps its leading space
	h = NewHeaders()
	h.Parse([]byte("Cookie: theme=dark; session_id=42\r\n"))
	val, ok = h.Cookie("session_id")
	require.True(t, ok)
	assert.Equal(t, "42", val)

	// No cookie header at all
	_, ok = NewHeaders().Cookie("session_id")
	assert.False(t, ok)
}

func TestSetSession(t *testing.T) {
	h := NewHeaders().SetSession("tok")

	val, ok := h.Get(SetCookie)
	require.True(t, ok)
	assert.Equal(t, "session_id=tok; HttpOnly; SameSite=Strict; Max-Age=3600; Path=/", val)

	val, _ = h.Get(ExposeHeaders)
	assert.Equal(t, "session_id", val)
}

func TestString(t *testing.T) {
	h := NewHeaders().With(
		[2]string{"b", "2"},
		[2]string{"a", "1"},
	)
	assert.Equal(t, "a: 1\r\nb: 2", h.String())
	assert.Equal(t, "", NewHeaders().String())
}

func TestDefaults(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	h := DefaultJSON()
	val, _ := h.Get(ContentType)
	assert.Equal(t, "application/json", val)
	val, _ = h.Get(AllowCredentials)
	assert.Equal(t, "true", val)
	val, _ = h.Get(Date)
	assert.Equal(t, "Sat, 01 Mar 2025 12:00:00 GMT", val)

	h = DefaultHTML()
	val, _ = h.Get(ContentType)
	assert.True(t, strings.HasPrefix(val, "text/html"))

	h = DefaultOptions()
	val, _ = h.Get(AllowMethods)
	assert.Equal(t, "GET, POST, PATCH, DELETE, OPTIONS", val)
	val, _ = h.Get(AllowHeaders)
	assert.Equal(t, "content-type, session_id", val)
	val, _ = h.Get(MaxAge)
	assert.Equal(t, "86400", val)
	_, ok := h.Get(AllowOrigin)
	assert.False(t, ok)
}

func TestPreflightOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()

	h := Preflight(cfg, "http://localhost:8080")
	val, ok := h.Get(AllowOrigin)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8080", val)

	h = Preflight(cfg, "http://evil.example")
	_, ok = h.Get(AllowOrigin)
	assert.False(t, ok)

	cfg.AllowedOrigins = []string{"*"}
	cfg.AllowCredentials = false
	h = Preflight(cfg, "http://anything")
	val, _ = h.Get(AllowOrigin)
	assert.Equal(t, "http://anything", val)
	_, ok = h.Get(AllowCredentials)
	assert.False(t, ok)
}
