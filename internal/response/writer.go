package response

import (
	"errors"
	"fmt"
	"io"

	"github.com/Brownie44l1/pdaq-server/internal/headers"
)

var (
	ErrWriteFailed = errors.New("write failed")
	ErrPeerClosed  = errors.New("peer closed connection")
)

// writerState tracks what's been written so far
type writerState int

const (
	stateStart writerState = iota
	stateStatusWritten
	stateHeadersWritten
	stateBodyWritten
)

// flusher is implemented by buffered connections
type flusher interface {
	Flush() error
}

// Writer writes HTTP responses to an io.Writer. Every write loops until
// all bytes are accepted, so short writes never drop data.
type Writer struct {
	w            io.Writer
	state        writerState
	statusCode   StatusCode
	bytesWritten int64
	hadError     bool
}

// NewWriter creates a new response writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     w,
		state: stateStart,
	}
}

// WriteResponse writes the status line, headers and body of resp
func (w *Writer) WriteResponse(resp *Response) error {
	if err := w.WriteStatusLine(resp.Status); err != nil {
		return err
	}
	if err := w.WriteHeaders(resp.Headers, resp.ContentLength()); err != nil {
		return err
	}
	return w.WriteBody([]byte(resp.Body))
}

// WriteStatusLine writes the HTTP status line
func (w *Writer) WriteStatusLine(code StatusCode) error {
	if w.state != stateStart {
		return fmt.Errorf("status line already written")
	}
	if err := w.writeAll([]byte(statusLine(code))); err != nil {
		return err
	}
	w.statusCode = code
	w.state = stateStatusWritten
	return nil
}

// WriteHeaders writes content-length, the remaining headers and the blank line
func (w *Writer) WriteHeaders(h *headers.Headers, contentLength int) error {
	if w.state != stateStatusWritten {
		return fmt.Errorf("must write status line before headers")
	}
	if err := w.writeAll([]byte(headerBlock(h, contentLength))); err != nil {
		return err
	}
	w.state = stateHeadersWritten
	return nil
}

// WriteBody writes the complete response body
func (w *Writer) WriteBody(data []byte) error {
	if w.state != stateHeadersWritten {
		return fmt.Errorf("must write headers before body")
	}
	if err := w.writeAll(data); err != nil {
		return err
	}
	w.state = stateBodyWritten
	return nil
}

// writeAll retries short writes until p is sent. A zero-byte write with no
// error means the peer is gone.
func (w *Writer) writeAll(p []byte) error {
	sent := 0
	for sent < len(p) {
		n, err := w.w.Write(p[sent:])
		sent += n
		w.bytesWritten += int64(n)
		if err != nil {
			w.hadError = true
			return fmt.Errorf("%w after %d/%d bytes: %w", ErrWriteFailed, sent, len(p), err)
		}
		if n == 0 {
			w.hadError = true
			return fmt.Errorf("%w after %d/%d bytes", ErrPeerClosed, sent, len(p))
		}
		if f, ok := w.w.(flusher); ok {
			if err := f.Flush(); err != nil {
				w.hadError = true
				return fmt.Errorf("%w: flush: %w", ErrWriteFailed, err)
			}
		}
	}
	return nil
}

// State tracking methods for connection management

func (w *Writer) HadError() bool {
	return w.hadError
}

func (w *Writer) StatusCode() StatusCode {
	return w.statusCode
}

func (w *Writer) BytesWritten() int64 {
	return w.bytesWritten
}

// Done reports whether a full response was written
func (w *Writer) Done() bool {
	return w.state == stateBodyWritten
}
