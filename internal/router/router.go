// Package router maps a parsed request onto one of the built-in handlers:
// index page, echo, user-agent reflection and file GET/POST under a
// configured directory.
package router

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/devwelkin/hermes-files/internal/protocol"
	"github.com/devwelkin/hermes-files/internal/request"
	"github.com/devwelkin/hermes-files/internal/response"
)

// Handler builds a response for req. dir is the effective directory.
type Handler func(req *request.Request, dir string) (*response.Response, error)

type route struct {
	name   string
	match  func(req *request.Request) bool
	handle Handler
}

// Router holds the ordered route table. the first matching route wins.
type Router struct {
	directory string
	logger    *log.Logger
	routes    []route
	locks     pathLocks
}

// New returns a Router serving files from directory. an empty directory
// means the process working directory, looked up on every request.
func New(directory string, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	rt := &Router{
		directory: directory,
		logger:    logger,
	}
	rt.routes = []route{
		{"index", isGet(func(target string) bool { return target == "/" }), rt.handleIndex},
		{"echo", isGet(func(target string) bool { return strings.HasPrefix(target, "/echo/") }), rt.handleEcho},
		{"user-agent", isGet(func(target string) bool { return strings.HasPrefix(target, "/user-agent") }), rt.handleUserAgent},
		{"file-get", isGet(func(string) bool { return true }), rt.handleFileGet},
		{"file-post", isMethod(protocol.MethodPost), rt.handleFilePost},
	}
	return rt
}

func isMethod(m protocol.Method) func(*request.Request) bool {
	return func(req *request.Request) bool {
		return req.RequestLine.Method == m
	}
}

func isGet(target func(string) bool) func(*request.Request) bool {
	return func(req *request.Request) bool {
		return req.RequestLine.Method == protocol.MethodGet && target(req.RequestLine.RequestTarget)
	}
}

// Route dispatches req. a request no route matches gets 404; an error is
// only returned when a file handler fails.
func (rt *Router) Route(req *request.Request) (*response.Response, error) {
	line := req.RequestLine
	if !line.Method.Known() || !line.HTTPVersion.Known() {
		rt.logger.Printf("rejecting %q: unrecognized method or version", line.String())
		return response.New(protocol.StatusBadRequest, nil, nil), nil
	}

	for _, r := range rt.routes {
		if !r.match(req) {
			continue
		}
		dir, err := rt.effectiveDirectory()
		if err != nil {
			return nil, err
		}
		res, err := r.handle(req, dir)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r.name, err)
		}
		return res, nil
	}

	return response.New(protocol.StatusNotFound, nil, nil), nil
}

func (rt *Router) effectiveDirectory() (string, error) {
	if rt.directory != "" {
		return rt.directory, nil
	}
	return os.Getwd()
}

// resolve joins target onto dir. target is cleaned as an absolute path
// first, so ".." can never climb above dir.
func resolve(dir, target string) string {
	return filepath.Join(dir, filepath.FromSlash(path.Clean("/"+target)))
}
