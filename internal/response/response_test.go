package response

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/pdaq-server/internal/headers"
)

// shortWriter accepts at most max bytes per call
type shortWriter struct {
	buf   bytes.Buffer
	max   int
	calls int
}

func (sw *shortWriter) Write(p []byte) (int, error) {
	sw.calls++
	if len(p) > sw.max {
		p = p[:sw.max]
	}
	return sw.buf.Write(p)
}

// zeroWriter accepts n bytes, then reports zero-byte writes
type zeroWriter struct {
	n int
}

func (zw *zeroWriter) Write(p []byte) (int, error) {
	if zw.n <= 0 {
		return 0, nil
	}
	take := min(len(p), zw.n)
	zw.n -= take
	return take, nil
}

type errWriter struct{}

func (errWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

type flushWriter struct {
	bytes.Buffer
	flushes int
}

func (fw *flushWriter) Flush() error {
	fw.flushes++
	return nil
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "200 OK", StatusOK.String())
	assert.Equal(t, "201 Created", StatusCreated.String())
	assert.Equal(t, "204 No Content", StatusNoContent.String())
	assert.Equal(t, "400 Bad Request", StatusBadRequest.String())
	assert.Equal(t, "401 Unauthorized", StatusUnauthorized.String())
	assert.Equal(t, "403 Forbidden", StatusForbidden.String())
	assert.Equal(t, "404 Not Found", StatusNotFound.String())
	assert.Equal(t, "500 Internal Server Error", StatusInternalServerError.String())
	assert.Equal(t, "418 Unknown", StatusCode(418).String())

	assert.True(t, StatusNoContent.IsSuccess())
	assert.True(t, StatusForbidden.IsClientError())
	assert.True(t, StatusInternalServerError.IsServerError())
}

func TestBytesFormat(t *testing.T) {
	h := headers.NewHeaders().With(
		[2]string{"content-type", "application/json"},
		[2]string{"content-length", "999"},
	)
	resp := New(StatusOK, h, `{"ok":true}`)

	want := "HTTP/1.1 200 OK\r\n" +
		"content-length: 11\r\n" +
		"content-type: application/json\r\n" +
		"\r\n" +
		`{"ok":true}`
	assert.Equal(t, want, string(resp.Bytes()))

	// Caller's headers are left untouched
	v, _ := h.Get("content-length")
	assert.Equal(t, "999", v)
}

func TestBytesNoHeaders(t *testing.T) {
	resp := New(StatusNoContent, nil, "")
	assert.Equal(t, "HTTP/1.1 204 No Content\r\ncontent-length: 0\r\n\r\n", resp.String())
}

func TestContentLengthRoundTrip(t *testing.T) {
	bodies := []string{"", "hello", "héllo wörld", "padded\x00\x00\x00", `{"a":[1,2,3]}`}
	for _, body := range bodies {
		raw := string(New(StatusOK, headers.DefaultJSON(), body).Bytes())

		head, got, found := strings.Cut(raw, "\r\n\r\n")
		require.True(t, found)
		assert.True(t, strings.HasPrefix(head, "HTTP/1.1 200 OK\r\n"))

		var declared int
		for _, line := range strings.Split(head, "\r\n") {
			if v, ok := strings.CutPrefix(line, "content-length: "); ok {
				n, err := strconv.Atoi(v)
				require.NoError(t, err)
				declared = n
			}
		}
		trimmed := strings.TrimRight(body, "\x00")
		assert.Equal(t, len(trimmed), declared, "body %q", body)
		assert.Equal(t, trimmed, got)
	}
}

func TestWriterShortWrites(t *testing.T) {
	resp := New(StatusOK, headers.NewHeaders(), strings.Repeat("x", 100))
	sw := &shortWriter{max: 7}

	w := NewWriter(sw)
	require.NoError(t, w.WriteResponse(resp))
	assert.Equal(t, resp.Bytes(), sw.buf.Bytes())
	assert.Greater(t, sw.calls, 3)
	assert.True(t, w.Done())
	assert.False(t, w.HadError())
	assert.Equal(t, StatusOK, w.StatusCode())
	assert.Equal(t, int64(len(resp.Bytes())), w.BytesWritten())
}

func TestWriterZeroWrite(t *testing.T) {
	resp := New(StatusOK, headers.NewHeaders(), "body")
	w := NewWriter(&zeroWriter{n: 10})

	err := w.WriteResponse(resp)
	assert.ErrorIs(t, err, ErrPeerClosed)
	assert.True(t, w.HadError())
	assert.False(t, w.Done())
	assert.Equal(t, int64(10), w.BytesWritten())
}

func TestWriterError(t *testing.T) {
	w := NewWriter(errWriter{})
	err := w.WriteResponse(NoContent())
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.True(t, w.HadError())
}

func TestWriterFlushes(t *testing.T) {
	fw := &flushWriter{}
	_, err := New(StatusOK, nil, "abc").WriteTo(fw)
	require.NoError(t, err)
	// status line, header block, body
	assert.Equal(t, 3, fw.flushes)
}

func TestWriterOrdering(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	assert.Error(t, w.WriteBody([]byte("x")))
	assert.Error(t, w.WriteHeaders(headers.NewHeaders(), 0))
	require.NoError(t, w.WriteStatusLine(StatusOK))
	assert.Error(t, w.WriteStatusLine(StatusOK))
}

func TestCannedResponses(t *testing.T) {
	resp := NotFoundJSON("/nope")
	assert.Equal(t, StatusNotFound, resp.Status)
	assert.Equal(t, `{"error":"/nope not found"}`, resp.Body)
	ct, _ := resp.Headers.Get(headers.ContentType)
	assert.Equal(t, "application/json", ct)

	resp = NotFoundHTML()
	assert.Equal(t, StatusNotFound, resp.Status)
	assert.Contains(t, resp.Body, "404")
	ct, _ = resp.Headers.Get(headers.ContentType)
	assert.True(t, strings.HasPrefix(ct, "text/html"))

	assert.Equal(t, `{"error":"bad"}`, BadRequest("bad").Body)
	assert.Equal(t, `{"error":"Missing request body. Required: username"}`, MissingBody(" Required: username").Body)
	assert.Equal(t, `{"error":"Invalid request body."}`, InvalidBody("").Body)

	resp = Unauthorized()
	assert.Equal(t, StatusUnauthorized, resp.Status)
	assert.Equal(t, `{"error":"Invalid authentication credentials."}`, resp.Body)

	resp = Forbidden()
	assert.Equal(t, StatusForbidden, resp.Status)
	assert.Equal(t, `{"error":"User not authorized."}`, resp.Body)

	resp = NoContent()
	assert.Equal(t, StatusNoContent, resp.Status)
	assert.Equal(t, "", resp.Body)

	resp = Created(map[string]string{"username": "bob"})
	assert.Equal(t, StatusCreated, resp.Status)
	assert.Equal(t, `{"username":"bob"}`, resp.Body)

	resp = OK(func() {})
	assert.Equal(t, StatusInternalServerError, resp.Status)
}

func TestOptions(t *testing.T) {
	cfg := headers.DefaultCORSConfig()

	resp := Options(cfg, "http://localhost:8080")
	assert.Equal(t, StatusNoContent, resp.Status)
	origin, ok := resp.Headers.Get(headers.AllowOrigin)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8080", origin)
	methods, _ := resp.Headers.Get(headers.AllowMethods)
	assert.Equal(t, "GET, POST, PATCH, DELETE, OPTIONS", methods)

	resp = Options(cfg, "http://elsewhere")
	_, ok = resp.Headers.Get(headers.AllowOrigin)
	assert.False(t, ok)
}

func TestWithSession(t *testing.T) {
	resp := OK(map[string]string{"username": "alice"}).WithSession("tok-1")
	cookie, ok := resp.Headers.Get(headers.SetCookie)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(cookie, "session_id=tok-1;"))
	assert.Contains(t, resp.String(), "set-cookie: session_id=tok-1;")
}
