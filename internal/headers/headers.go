package headers

import (
	"bytes"
	"sort"
)

// Headers maps a case-sensitive header name to its value.
// Not map[string][]string: a repeated name overwrites the earlier value.
type Headers map[string]string

func NewHeaders() Headers {
	return map[string]string{}
}

// Parse consumes one header line from data. it returns the number of bytes
// consumed and done=true when the line is the empty line ending the header
// block. n is 0 when data holds no complete line yet.
//
// A line with a blank name or blank value after trimming is consumed but
// not stored.
func (h Headers) Parse(data []byte) (n int, done bool) {
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		return 0, false
	}

	line := bytes.TrimSuffix(data[:idx], []byte("\r"))
	if len(line) == 0 {
		// the empty line
		return idx + 1, true
	}

	name, value, _ := bytes.Cut(line, []byte(":"))
	name = bytes.TrimSpace(name)
	value = bytes.TrimSpace(value)
	if len(name) == 0 || len(value) == 0 {
		return idx + 1, false
	}

	h[string(name)] = string(value)
	return idx + 1, false
}

func (h Headers) Get(key string) (string, bool) {
	value, ok := h[key]
	return value, ok
}

// Set adds or overwrites a header.
func (h Headers) Set(key, value string) {
	h[key] = value
}

func (h Headers) Delete(key string) {
	delete(h, key)
}

// Keys returns the header names in sorted order.
func (h Headers) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
