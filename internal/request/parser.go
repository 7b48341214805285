package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Brownie44l1/pdaq-server/internal/headers"
	"github.com/Brownie44l1/pdaq-server/internal/logging"
)

// Size limits
const (
	initialBufferSize  = 1024
	maxHeaderSize      = 1 << 20  // 1MB request line + headers
	DefaultMaxBodySize = 10 << 20 // 10MB body
	maxEmptyReads      = 3
)

var (
	ErrConnectionClosed = errors.New("connection closed before request was complete")
	ErrHeaderTooLarge   = errors.New("headers too large")
	ErrBodyTooLarge     = errors.New("request body too large")
	ErrIncompleteBody   = errors.New("request body shorter than content-length")
	ErrReaderUsed       = errors.New("reader already consumed a request")
)

var (
	crlf      = []byte("\r\n")
	delimiter = []byte("\r\n\r\n")
)

// parserState represents the current state of the request reader
type parserState int

const (
	stateHeaders parserState = iota
	stateBody
	stateDone
)

// Reader reads one request at a time from a stream. Bytes after the
// declared body are discarded, so each connection carries one request.
type Reader struct {
	MaxBodySize int64
	Logger      logging.Logger

	src   io.Reader
	state parserState
	buf   []byte
}

func NewReader(src io.Reader) *Reader {
	return &Reader{
		MaxBodySize: DefaultMaxBodySize,
		src:         src,
	}
}

// RequestFromReader reads a single request using the default limits
func RequestFromReader(src io.Reader) (*Request, error) {
	return NewReader(src).ReadRequest()
}

// ReadRequest blocks until a full request has been read. A Reader serves
// a single request: any later call returns ErrReaderUsed.
//
// Errors before the header block is complete return a nil request.
// ErrBodyTooLarge and ErrIncompleteBody are returned alongside the request
// whose headers were already parsed.
func (p *Reader) ReadRequest() (*Request, error) {
	if p.state != stateHeaders {
		return nil, ErrReaderUsed
	}
	p.buf = getBuffer()
	defer func() {
		putBuffer(p.buf)
		p.buf = nil
	}()

	end, err := p.readHead()
	if err != nil {
		return nil, err
	}
	req := p.parseHead(p.buf[:end])

	p.state = stateBody
	body, err := p.readBody(req, end+len(delimiter))
	if err != nil {
		return req, err
	}
	req.setBody(body)
	if req.BodyErr != nil {
		p.logger().Debug("Request body is not valid JSON",
			logging.F("error", req.BodyErr),
			logging.F("path", req.Path.String()),
		)
	}

	p.state = stateDone
	return req, nil
}

// readHead reads until the header delimiter and returns its offset.
func (p *Reader) readHead() (int, error) {
	var (
		scanned int
		empty   int
		readErr error
	)

	for {
		if idx := bytes.Index(p.buf[scanned:], delimiter); idx != -1 {
			return scanned + idx, nil
		}
		if n := len(p.buf) - (len(delimiter) - 1); n > scanned {
			scanned = n
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return 0, fmt.Errorf("%w: %w", ErrConnectionClosed, readErr)
			}
			return 0, fmt.Errorf("read error: %w", readErr)
		}
		if len(p.buf) >= maxHeaderSize {
			return 0, ErrHeaderTooLarge
		}
		if len(p.buf) == cap(p.buf) {
			p.buf = grow(p.buf, 2*cap(p.buf))
		}

		n, err := p.src.Read(p.buf[len(p.buf):cap(p.buf)])
		p.buf = p.buf[:len(p.buf)+n]
		readErr = err

		if n > 0 {
			empty = 0
			continue
		}
		if err == nil {
			empty++
			if empty >= maxEmptyReads {
				return 0, ErrConnectionClosed
			}
		}
	}
}

// parseHead parses the request line and header block. It never fails:
// malformed pieces degrade to MethodError, NotFound or missing headers.
func (p *Reader) parseHead(head []byte) *Request {
	req := newRequest()

	line, rest := head, []byte(nil)
	if idx := bytes.Index(head, crlf); idx != -1 {
		line, rest = head[:idx], head[idx+len(crlf):]
	}

	methodTok, remainder, _ := bytes.Cut(line, []byte(" "))
	target, version, _ := bytes.Cut(remainder, []byte(" "))

	req.Method = ParseMethod(methodTok)
	req.Version = strings.TrimSpace(string(version))

	rawPath, rawQuery, _ := bytes.Cut(target, []byte("?"))
	path := ""
	if utf8.Valid(rawPath) {
		path = strings.TrimSpace(string(rawPath))
	}
	req.Path = ParsePath(path)
	req.Params = ParseQuery(string(rawQuery))

	if skipped := req.Headers.Parse(rest); skipped > 0 {
		p.logger().Debug("Skipped malformed header lines", logging.F("count", skipped))
	}
	return req
}

// readBody returns exactly the declared body. Bytes already buffered are
// used first and the remainder is read in one ReadFull.
func (p *Reader) readBody(req *Request, start int) ([]byte, error) {
	if _, present := req.Headers.Get(headers.ContentLength); !present {
		return nil, nil
	}
	length, ok := req.ContentLength()
	if !ok {
		raw, _ := req.Headers.Get(headers.ContentLength)
		p.logger().Warn("Ignoring invalid content-length", logging.F("value", raw))
		return nil, nil
	}
	if length == 0 {
		return nil, nil
	}
	if length > p.maxBodySize() {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrBodyTooLarge, length, p.maxBodySize())
	}

	end := start + int(length)
	if end > len(p.buf) {
		p.buf = grow(p.buf, end)
		if _, err := io.ReadFull(p.src, p.buf[len(p.buf):end]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIncompleteBody, err)
		}
		p.buf = p.buf[:end]
	}
	return p.buf[start:end], nil
}

func (p *Reader) maxBodySize() int64 {
	if p.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return p.MaxBodySize
}

func (p *Reader) logger() logging.Logger {
	if p.Logger == nil {
		return logging.Nop()
	}
	return p.Logger
}
