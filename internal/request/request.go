package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Brownie44l1/pdaq-server/internal/headers"
)

var (
	ErrMissingBody = errors.New("missing request body")
	ErrInvalidBody = errors.New("invalid request body")
)

// BodyError records a body that was present but not valid JSON.
// Reading the request still succeeds; handlers decide what to do.
type BodyError struct {
	Body string
	Err  error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("invalid request body: %v", e.Err)
}

func (e *BodyError) Unwrap() []error {
	return []error{ErrInvalidBody, e.Err}
}

// Request is a parsed HTTP request
type Request struct {
	Method  Method
	Path    Path
	Version string
	Params  []Param
	Headers *headers.Headers

	// Body is the decoded JSON value, nil when the request had no body.
	Body    any
	RawBody []byte
	BodyErr error
}

func newRequest() *Request {
	return &Request{
		Method:  MethodError,
		Path:    Path{Kind: PathNotFound},
		Params:  []Param{},
		Headers: headers.NewHeaders(),
	}
}

// Param returns the first query value for key
func (r *Request) Param(key string) (string, bool) {
	for _, p := range r.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Header returns a header value with surrounding whitespace trimmed
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers.Get(name)
	return strings.TrimSpace(v), ok
}

// SessionID returns the session_id cookie, if the client sent one.
func (r *Request) SessionID() (string, bool) {
	id, ok := r.Headers.Cookie(headers.SessionID)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ContentLength returns the declared body length.
// ok is false when the header is absent or not a non-negative integer.
func (r *Request) ContentLength() (int64, bool) {
	raw, present := r.Headers.Get(headers.ContentLength)
	if !present {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// HasBody reports whether a non-empty body was received, even one that
// decodes to JSON null
func (r *Request) HasBody() bool {
	return len(r.RawBody) > 0 || r.BodyErr != nil
}

// DecodeBody unmarshals the raw body into v
func (r *Request) DecodeBody(v any) error {
	if r.BodyErr != nil {
		return r.BodyErr
	}
	if len(r.RawBody) == 0 {
		return ErrMissingBody
	}
	if err := json.Unmarshal(r.RawBody, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	return nil
}

// setBody cleans the raw body bytes and decodes them as JSON.
func (r *Request) setBody(raw []byte) {
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	text = strings.TrimRight(text, "\x00")
	for strings.HasSuffix(text, "\r\n\r\n") {
		text = strings.TrimSuffix(text, "\r\n\r\n")
	}
	if text == "" {
		return
	}

	r.RawBody = []byte(text)
	var v any
	if err := json.Unmarshal(r.RawBody, &v); err != nil {
		r.BodyErr = &BodyError{Body: text, Err: err}
		return
	}
	r.Body = v
}

// ParamsString renders the query params as "?k=v&k2=v2", or "" when empty
func (r *Request) ParamsString() string {
	if len(r.Params) == 0 {
		return ""
	}
	return "?" + EncodeParams(r.Params)
}

// String re-serializes the request: request line, headers, blank line, body.
func (r *Request) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s%s %s\r\n", r.Method, r.Path, r.ParamsString(), r.Version)
	if h := r.Headers.String(); h != "" {
		sb.WriteString(h)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	sb.Write(r.RawBody)
	return sb.String()
}
