// request.go

package request

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/devwelkin/hermes-files/internal/headers"
	"github.com/devwelkin/hermes-files/internal/protocol"
)

// Custom errors
var (
	ErrHeaderTooLarge = errors.New("request header block too large")
	ErrBodyTooLarge   = errors.New("request body too large")
)

const (
	DefaultMaxHeaderBytes = 8 << 10
	DefaultMaxBodyBytes   = 10 << 20
)

const (
	stateRequestLine = iota // 0
	stateHeaders            // 1
	stateBody               // 2
	stateDone               // 3
)

type Request struct {
	RequestLine RequestLine
	Headers     headers.Headers
	state       int
	// Body is nil when the request carried none. it is always valid utf-8.
	Body []byte
}

type RequestLine struct {
	Method        protocol.Method
	RequestTarget string
	HTTPVersion   protocol.Version
}

func (rl RequestLine) String() string {
	return fmt.Sprintf("%s %s %s", rl.Method, rl.RequestTarget, rl.HTTPVersion)
}

// KeepAlive reports whether the connection should stay open after this
// request has been answered.
func (r *Request) KeepAlive() bool {
	if conn, ok := r.Headers.Get("Connection"); ok {
		return !strings.EqualFold(conn, "close")
	}
	return r.RequestLine.HTTPVersion.KeepAliveByDefault()
}

// Reader parses consecutive requests off one connection. the underlying
// bufio.Reader is kept between requests so bytes read ahead are not lost.
type Reader struct {
	br             *bufio.Reader
	MaxHeaderBytes int
	MaxBodyBytes   int
}

func NewReader(r io.Reader) *Reader {
	var br *bufio.Reader
	if casted, ok := r.(*bufio.Reader); ok {
		br = casted
	} else {
		br = bufio.NewReader(r)
	}
	return &Reader{
		br:             br,
		MaxHeaderBytes: DefaultMaxHeaderBytes,
		MaxBodyBytes:   DefaultMaxBodyBytes,
	}
}

// RequestFromReader parses a single request with the default limits.
func RequestFromReader(reader io.Reader) (*Request, error) {
	return NewReader(reader).ReadRequest()
}

// WaitForData blocks until at least one byte is available without
// consuming it. it returns io.EOF when the peer closed the connection
// cleanly.
func (r *Reader) WaitForData() error {
	_, err := r.br.Peek(1)
	return err
}

// ReadRequest reads exactly one request: request line, header block and a
// Content-Length delimited body.
func (r *Reader) ReadRequest() (*Request, error) {
	req := &Request{
		state:   stateRequestLine,
		Headers: headers.NewHeaders(),
	}
	budget := r.MaxHeaderBytes
	consumed := 0

	for req.state != stateDone {
		switch req.state {
		case stateRequestLine:
			line, err := r.readLine(&budget)
			consumed += len(line)
			if err != nil {
				if errors.Is(err, io.EOF) && consumed > 0 {
					err = io.ErrUnexpectedEOF
				}
				return nil, fmt.Errorf("failed to read request line: %w", err)
			}
			text := strings.TrimRight(string(line), "\r\n")
			if text == "" {
				// tolerate blank lines before the request line
				continue
			}
			req.RequestLine = parseRequestLine(text)
			req.state = stateHeaders

		case stateHeaders:
			line, err := r.readLine(&budget)
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}
				return nil, fmt.Errorf("failed to read headers: %w", err)
			}
			if _, done := req.Headers.Parse(line); done {
				req.state = stateBody
			}

		case stateBody:
			body, err := r.readBody(req.Headers)
			if err != nil {
				return nil, err
			}
			req.Body = body
			req.state = stateDone

		default:
			return nil, errors.New("invalid parser state")
		}
	}

	return req, nil
}

// readLine returns one line including its terminator, charging its length
// against budget.
func (r *Reader) readLine(budget *int) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		if len(chunk) > *budget {
			return nil, ErrHeaderTooLarge
		}
		*budget -= len(chunk)
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

func parseRequestLine(line string) RequestLine {
	parts := strings.Fields(line)
	// missing tokens stay empty
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return RequestLine{
		Method:        protocol.ParseMethod(parts[0]),
		RequestTarget: parts[1],
		HTTPVersion:   protocol.ParseVersion(parts[2]),
	}
}

func (r *Reader) readBody(h headers.Headers) ([]byte, error) {
	value, ok := h.Get("Content-Length")
	if !ok {
		return nil, nil
	}

	contentLength, err := strconv.Atoi(value)
	if err != nil || contentLength <= 0 {
		// not a positive integer: no body
		return nil, nil
	}
	if r.MaxBodyBytes > 0 && contentLength > r.MaxBodyBytes {
		return nil, fmt.Errorf("%w: content-length %d", ErrBodyTooLarge, contentLength)
	}

	body := make([]byte, contentLength)
	n, err := io.ReadFull(r.br, body)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read body (%d of %d bytes): %w", n, contentLength, err)
	}

	return decodeLossy(body), nil
}
