package response

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/devwelkin/hermes-files/internal/headers"
	"github.com/devwelkin/hermes-files/internal/protocol"
)

type writerState int

const (
	stateStatus  writerState = iota // can write status
	stateHeaders                    // can write headers
	stateBody                       // can write body
)

// Writer is a stateful, buffered writer for http responses. one Writer
// serves every response on a connection; WriteResponse resets it after
// each one.
type Writer struct {
	w     *bufio.Writer // connection
	state writerState   // state machine
}

// NewWriter creates a new response Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     bufio.NewWriter(w),
		state: stateStatus,
	}
}

// WriteStatusLine writes the status line. can only be called once, and first.
func (w *Writer) WriteStatusLine(version protocol.Version, code protocol.StatusCode, message string) error {
	if w.state != stateStatus {
		return errors.New("WriteStatusLine called in wrong state")
	}
	if _, err := fmt.Fprintf(w.w, "%s %d %s\r\n", version, code, message); err != nil {
		return err
	}
	w.state = stateHeaders
	return nil
}

// WriteHeaders writes the headers, sorted by name, and the blank line.
// must be called after status and before body.
func (w *Writer) WriteHeaders(h headers.Headers) error {
	if w.state != stateHeaders {
		return errors.New("WriteHeaders called in wrong state")
	}

	for _, key := range h.Keys() {
		if _, err := fmt.Fprintf(w.w, "%s: %s\r\n", key, h[key]); err != nil {
			return err
		}
	}

	// final crlf to separate headers from body
	if _, err := w.w.WriteString("\r\n"); err != nil {
		return err
	}

	w.state = stateBody
	return nil
}

// WriteBody appends p to the body. WriteHeaders must have run first, since
// it is what ends the header block.
func (w *Writer) WriteBody(p []byte) (int, error) {
	if w.state != stateBody {
		return 0, errors.New("WriteBody called before headers")
	}
	return w.w.Write(p)
}

// WriteResponse serializes res, flushes it to the connection and readies
// the writer for the next response.
func (w *Writer) WriteResponse(res *Response) error {
	if err := w.WriteStatusLine(res.Version, res.StatusCode, res.StatusMessage); err != nil {
		return err
	}
	if err := w.WriteHeaders(res.Headers); err != nil {
		return err
	}
	if res.Body != nil {
		if _, err := w.WriteBody(res.Body); err != nil {
			return err
		}
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	w.state = stateStatus
	return nil
}

// Close flushes whatever is still buffered. it does not close the
// underlying connection.
func (w *Writer) Close() error {
	return w.w.Flush()
}

// Bytes returns the wire form of res.
func (res *Response) Bytes() []byte {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	// bytes.Buffer writes never fail
	_ = w.WriteResponse(res)
	return buf.Bytes()
}
