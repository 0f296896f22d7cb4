package response

import (
	"strconv"

	"github.com/devwelkin/hermes-files/internal/headers"
	"github.com/devwelkin/hermes-files/internal/protocol"
)

// Response is a complete http response waiting to be serialized.
type Response struct {
	Version       protocol.Version
	StatusCode    protocol.StatusCode
	StatusMessage string
	Headers       headers.Headers
	// Body is nil when the response has none.
	Body []byte
}

// New builds an HTTP/1.1 response. Content-Length always matches body:
// it is set when body is non-nil and removed otherwise.
func New(status protocol.StatusCode, h headers.Headers, body []byte) *Response {
	if h == nil {
		h = headers.NewHeaders()
	}
	if body != nil {
		h.Set("Content-Length", strconv.Itoa(len(body)))
	} else {
		h.Delete("Content-Length")
	}
	return &Response{
		Version:       protocol.HTTP11,
		StatusCode:    status,
		StatusMessage: status.Reason(),
		Headers:       h,
		Body:          body,
	}
}

// GetDefaultHeaders returns the headers of a plain text reply that ends the
// connection: Content-Type text/plain, Connection close and a Content-Length
// of contentLen.
func GetDefaultHeaders(contentLen int) headers.Headers {
	return headers.Headers{
		"Content-Type":   "text/plain",
		"Connection":     "close",
		"Content-Length": strconv.Itoa(contentLen),
	}
}
