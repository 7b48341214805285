package response

import (
	"io"
	"strconv"
	"strings"

	"github.com/Brownie44l1/pdaq-server/internal/headers"
)

// Response is a complete reply. It is serialized once and the connection
// is closed afterwards.
type Response struct {
	Status  StatusCode
	Headers *headers.Headers
	Body    string
}

// New builds a response. Trailing NUL bytes are stripped from body so the
// content-length matches what is sent.
func New(status StatusCode, h *headers.Headers, body string) *Response {
	if h == nil {
		h = headers.NewHeaders()
	}
	return &Response{
		Status:  status,
		Headers: h,
		Body:    strings.TrimRight(body, "\x00"),
	}
}

// WithSession attaches the session cookie to the response
func (r *Response) WithSession(sessionID string) *Response {
	r.Headers.SetSession(sessionID)
	return r
}

// ContentLength is the exact byte length of the body
func (r *Response) ContentLength() int {
	return len(r.Body)
}

// Bytes serializes the response:
//
//	HTTP/1.1 <status>\r\ncontent-length: N\r\n(<header>\r\n)*\r\n<body>
func (r *Response) Bytes() []byte {
	var sb strings.Builder
	sb.WriteString(statusLine(r.Status))
	sb.WriteString(headerBlock(r.Headers, r.ContentLength()))
	sb.WriteString(r.Body)
	return []byte(sb.String())
}

func (r *Response) String() string {
	return string(r.Bytes())
}

// WriteTo sends the response through a Writer
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	rw := NewWriter(w)
	err := rw.WriteResponse(r)
	return rw.BytesWritten(), err
}

func statusLine(code StatusCode) string {
	return "HTTP/1.1 " + code.String() + "\r\n"
}

// headerBlock renders the content-length line, every other header and the
// terminating blank line. A content-length already present in h is ignored.
func headerBlock(h *headers.Headers, contentLength int) string {
	var sb strings.Builder
	sb.WriteString(headers.ContentLength + ": " + strconv.Itoa(contentLength) + "\r\n")
	if h != nil {
		h = h.Clone()
		h.Del(headers.ContentLength)
		if s := h.String(); s != "" {
			sb.WriteString(s)
			sb.WriteString("\r\n")
		}
	}
	sb.WriteString("\r\n")
	return sb.String()
}
