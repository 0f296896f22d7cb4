package router

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/devwelkin/hermes-files/internal/headers"
	"github.com/devwelkin/hermes-files/internal/protocol"
	"github.com/devwelkin/hermes-files/internal/request"
	"github.com/devwelkin/hermes-files/internal/response"
)

func newRequest(method, target, version string, h headers.Headers, body []byte) *request.Request {
	if h == nil {
		h = headers.NewHeaders()
	}
	return &request.Request{
		RequestLine: request.RequestLine{
			Method:        protocol.ParseMethod(method),
			RequestTarget: target,
			HTTPVersion:   protocol.ParseVersion(version),
		},
		Headers: h,
		Body:    body,
	}
}

func newTestRouter(t *testing.T, dir string) *Router {
	t.Helper()
	return New(dir, log.New(io.Discard, "", 0))
}

func mustRoute(t *testing.T, rt *Router, req *request.Request) *response.Response {
	t.Helper()
	res, err := rt.Route(req)
	if err != nil {
		t.Fatalf("Route(%s): %v", req.RequestLine, err)
	}
	return res
}

func checkResponse(t *testing.T, res *response.Response, code protocol.StatusCode, contentType, body string) {
	t.Helper()
	if res.StatusCode != code {
		t.Errorf("status = %d, want %d", res.StatusCode, code)
	}
	if got := res.Headers["Content-Type"]; got != contentType {
		t.Errorf("Content-Type = %q, want %q", got, contentType)
	}
	if string(res.Body) != body {
		t.Errorf("body = %q, want %q", res.Body, body)
	}
	if got, want := res.Headers["Content-Length"], strconv.Itoa(len(body)); got != want {
		t.Errorf("Content-Length = %q, want %q", got, want)
	}
}

func TestIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := mustRoute(t, newTestRouter(t, dir), newRequest("GET", "/", "HTTP/1.1", nil, nil))
	checkResponse(t, res, protocol.StatusOK, "text/html", "<h1>hi</h1>")
}

func TestIndexMissingServesPlaceholder(t *testing.T) {
	res := mustRoute(t, newTestRouter(t, t.TempDir()), newRequest("GET", "/", "HTTP/1.1", nil, nil))
	checkResponse(t, res, protocol.StatusOK, "text/html", "Error: Cannot read file")
}

func TestIndexUsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("cwd"), 0o644); err != nil {
		t.Fatal(err)
	}
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	res := mustRoute(t, newTestRouter(t, ""), newRequest("GET", "/", "HTTP/1.1", nil, nil))
	checkResponse(t, res, protocol.StatusOK, "text/html", "cwd")
}

func TestEcho(t *testing.T) {
	rt := newTestRouter(t, t.TempDir())
	for _, s := range []string{"abc", "", "grape-pineapple", "日本"} {
		res := mustRoute(t, rt, newRequest("GET", "/echo/"+s, "HTTP/1.1", nil, nil))
		checkResponse(t, res, protocol.StatusOK, "text/plain", s)
	}
}

func TestEchoStripsPrefixOnce(t *testing.T) {
	rt := newTestRouter(t, t.TempDir())
	res := mustRoute(t, rt, newRequest("GET", "/echo//echo/x", "HTTP/1.1", nil, nil))
	checkResponse(t, res, protocol.StatusOK, "text/plain", "/echo/x")

	res = mustRoute(t, rt, newRequest("GET", "/echo/echo/", "HTTP/1.1", nil, nil))
	checkResponse(t, res, protocol.StatusOK, "text/plain", "echo/")
}

func TestUserAgent(t *testing.T) {
	rt := newTestRouter(t, t.TempDir())

	res := mustRoute(t, rt, newRequest("GET", "/user-agent", "HTTP/1.1",
		headers.Headers{"User-Agent": "foobar/1.2.3"}, nil))
	checkResponse(t, res, protocol.StatusOK, "text/plain", "foobar/1.2.3")

	res = mustRoute(t, rt, newRequest("GET", "/user-agent", "HTTP/1.1", nil, nil))
	checkResponse(t, res, protocol.StatusOK, "text/plain", "Unable to determine User-Agent")

	// header names are case-sensitive
	res = mustRoute(t, rt, newRequest("GET", "/user-agent", "HTTP/1.1",
		headers.Headers{"user-agent": "lower"}, nil))
	checkResponse(t, res, protocol.StatusOK, "text/plain", "Unable to determine User-Agent")
}

func TestFileGet(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	rt := newTestRouter(t, dir)
	res := mustRoute(t, rt, newRequest("GET", "/style.css", "HTTP/1.1", nil, nil))
	checkResponse(t, res, protocol.StatusOK, "text/css", "body{}")

	again := mustRoute(t, rt, newRequest("GET", "/style.css", "HTTP/1.1", nil, nil))
	if !bytes.Equal(res.Bytes(), again.Bytes()) {
		t.Errorf("repeated GET differs:\n%q\n%q", res.Bytes(), again.Bytes())
	}
}

func TestFileGetMissing(t *testing.T) {
	_, err := newTestRouter(t, t.TempDir()).Route(newRequest("GET", "/nope.txt", "HTTP/1.1", nil, nil))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestFileGetCannotEscapeDirectory(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := newTestRouter(t, root).Route(newRequest("GET", "/../secret.txt", "HTTP/1.1", nil, nil))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestPostThenGet(t *testing.T) {
	dir := t.TempDir()
	rt := newTestRouter(t, dir)

	post := mustRoute(t, rt, newRequest("POST", "/files/name.txt", "HTTP/1.1", nil, []byte("some data")))
	checkResponse(t, post, protocol.StatusCreated, "application/octet-stream", "some data")

	onDisk, err := os.ReadFile(filepath.Join(dir, "files", "name.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != "some data" {
		t.Errorf("file content = %q", onDisk)
	}

	get := mustRoute(t, rt, newRequest("GET", "/files/name.txt", "HTTP/1.1", nil, nil))
	checkResponse(t, get, protocol.StatusOK, "application/octet-stream", "some data")

	// overwrite
	mustRoute(t, rt, newRequest("POST", "/files/name.txt", "HTTP/1.1", nil, []byte("v2")))
	get = mustRoute(t, rt, newRequest("GET", "/files/name.txt", "HTTP/1.1", nil, nil))
	checkResponse(t, get, protocol.StatusOK, "application/octet-stream", "v2")
}

func TestPostWithoutBodyCreatesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	res := mustRoute(t, newTestRouter(t, dir), newRequest("POST", "/empty.js", "HTTP/1.1", nil, nil))
	checkResponse(t, res, protocol.StatusCreated, "text/js", "")
	info, err := os.Stat(filepath.Join(dir, "empty.js"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("size = %d, want 0", info.Size())
	}
}

func TestPostWriteFailure(t *testing.T) {
	dir := t.TempDir()
	// a regular file where a parent directory is expected
	if err := os.WriteFile(filepath.Join(dir, "blocker"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := newTestRouter(t, dir).Route(newRequest("POST", "/blocker/x.txt", "HTTP/1.1", nil, []byte("x")))
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestConcurrentPostsSamePath(t *testing.T) {
	dir := t.TempDir()
	rt := newTestRouter(t, dir)
	bodies := [][]byte{
		bytes.Repeat([]byte("a"), 64<<10),
		bytes.Repeat([]byte("b"), 64<<10),
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(body []byte) {
			defer wg.Done()
			if _, err := rt.Route(newRequest("POST", "/race.bin", "HTTP/1.1", nil, body)); err != nil {
				t.Error(err)
			}
		}(bodies[i%2])
	}
	wg.Wait()

	got, err := os.ReadFile(filepath.Join(dir, "race.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, bodies[0]) && !bytes.Equal(got, bodies[1]) {
		t.Error("file content is a mix of two writes")
	}
	if len(rt.locks.locks) != 0 {
		t.Errorf("%d path locks left behind", len(rt.locks.locks))
	}
}

func TestNotFound(t *testing.T) {
	rt := newTestRouter(t, t.TempDir())
	for _, m := range []string{"DELETE", "PUT"} {
		res := mustRoute(t, rt, newRequest(m, "/anything", "HTTP/1.1", nil, nil))
		if res.StatusCode != protocol.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", m, res.StatusCode)
		}
		if res.Body != nil {
			t.Errorf("%s: body = %q, want none", m, res.Body)
		}
		if _, ok := res.Headers["Content-Length"]; ok {
			t.Errorf("%s: unexpected Content-Length", m)
		}
	}
}

func TestUnrecognizedTokensRejected(t *testing.T) {
	rt := newTestRouter(t, t.TempDir())
	tests := []struct{ method, version string }{
		{"PATCH", "HTTP/1.1"},
		{"get", "HTTP/1.1"},
		{"GET", "HTTP/3"},
		{"GET", ""},
	}
	for _, tt := range tests {
		res := mustRoute(t, rt, newRequest(tt.method, "/echo/x", tt.version, nil, nil))
		if res.StatusCode != protocol.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", tt.method, tt.version, res.StatusCode)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"/index.html":        "text/html",
		"/a/b/site.css":      "text/css",
		"/app.js":            "text/js",
		"/logo.png":          "text/png",
		"/photo.jpg":         "text/jpg",
		"/photo.jpeg":        "text/jpeg",
		"/icon.svg":          "text/svg",
		"/notes.txt":         "application/octet-stream",
		"/README":            "application/octet-stream",
		"/dir.html/file":     "application/octet-stream",
		"/archive.tar.gz":    "application/octet-stream",
		"/UPPER.HTML":        "application/octet-stream",
		"/files/name.txt":    "application/octet-stream",
		"/trailing.html/":    "text/html",
		"/slashes.css//":     "text/css",
		"/.html":             "application/octet-stream",
		"/dir/.css":          "application/octet-stream",
		"/":                  "application/octet-stream",
		"/..":                "application/octet-stream",
		"/double.min.js":     "text/js",
		"/no-dot-at-all.svg": "text/svg",
	}
	for p, want := range tests {
		if got := ContentType(p); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", p, got, want)
		}
	}
}
