package router

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/devwelkin/hermes-files/internal/headers"
	"github.com/devwelkin/hermes-files/internal/protocol"
	"github.com/devwelkin/hermes-files/internal/request"
	"github.com/devwelkin/hermes-files/internal/response"
)

const (
	indexFile        = "index.html"
	indexPlaceholder = "Error: Cannot read file"
	unknownUserAgent = "Unable to determine User-Agent"
	textPlain        = "text/plain"
	octetStream      = "application/octet-stream"
)

var textExtensions = map[string]bool{
	"html": true,
	"css":  true,
	"js":   true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"svg":  true,
}

// ContentType maps the extension of the last path segment to a media type.
// the table maps every known extension to text/<ext>, images included.
// trailing slashes are ignored, and a name whose only dot leads it (".html")
// has no extension.
func ContentType(p string) string {
	name := path.Base(strings.TrimRight(p, "/"))
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return octetStream
	}
	if ext := name[i+1:]; textExtensions[ext] {
		return "text/" + ext
	}
	return octetStream
}

func (rt *Router) handleIndex(_ *request.Request, dir string) (*response.Response, error) {
	h := headers.Headers{"Content-Type": ContentType(indexFile)}

	content, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		// the index page never fails the request, it serves a placeholder
		rt.logger.Printf("cannot read index page: %v", err)
		content = []byte(indexPlaceholder)
	}

	return response.New(protocol.StatusOK, h, content), nil
}

func (rt *Router) handleEcho(req *request.Request, _ string) (*response.Response, error) {
	echo := strings.TrimPrefix(req.RequestLine.RequestTarget, "/echo/")
	h := headers.Headers{"Content-Type": textPlain}
	return response.New(protocol.StatusOK, h, []byte(echo)), nil
}

func (rt *Router) handleUserAgent(req *request.Request, _ string) (*response.Response, error) {
	agent, ok := req.Headers.Get("User-Agent")
	if !ok {
		agent = unknownUserAgent
	}
	h := headers.Headers{"Content-Type": textPlain}
	return response.New(protocol.StatusOK, h, []byte(agent)), nil
}

func (rt *Router) handleFileGet(req *request.Request, dir string) (*response.Response, error) {
	target := req.RequestLine.RequestTarget
	full := resolve(dir, target)

	unlock := rt.locks.acquire(full)
	content, err := os.ReadFile(full)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}

	h := headers.Headers{"Content-Type": ContentType(target)}
	return response.New(protocol.StatusOK, h, content), nil
}

func (rt *Router) handleFilePost(req *request.Request, dir string) (*response.Response, error) {
	target := req.RequestLine.RequestTarget
	full := resolve(dir, target)

	data := req.Body
	if data == nil {
		data = []byte{}
	}

	unlock := rt.locks.acquire(full)
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("post %s: %w", target, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return nil, fmt.Errorf("post %s: %w", target, err)
	}
	rt.logger.Printf("wrote %s to %s", humanize.Bytes(uint64(len(data))), full)

	h := headers.Headers{"Content-Type": ContentType(target)}
	return response.New(protocol.StatusCreated, h, data), nil
}
