package protocol

// Version is an http version token such as "HTTP/1.1".
type Version string

const (
	HTTP10 Version = "HTTP/1.0"
	HTTP11 Version = "HTTP/1.1"
	// HTTP20 is recognized as a token only, the binary framing is never used.
	HTTP20 Version = "HTTP/2.0"
)

func ParseVersion(token string) Version {
	return Version(token)
}

func (v Version) Known() bool {
	switch v {
	case HTTP10, HTTP11, HTTP20:
		return true
	}
	return false
}

// KeepAliveByDefault reports whether a connection stays open when the
// request carries no Connection header. unknown versions get 1.0 rules.
func (v Version) KeepAliveByDefault() bool {
	return v == HTTP11 || v == HTTP20
}

func (v Version) String() string {
	return string(v)
}
