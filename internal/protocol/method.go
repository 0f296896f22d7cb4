package protocol

// Method is a request method token as it appeared on the wire.
// Unrecognized tokens are kept verbatim; use Known to tell them apart.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

var knownMethods = map[Method]bool{
	MethodGet:    true,
	MethodPost:   true,
	MethodPut:    true,
	MethodDelete: true,
}

// ParseMethod wraps a raw token. it never fails; check Known.
func ParseMethod(token string) Method {
	return Method(token)
}

// Known reports whether m is one of the supported methods.
func (m Method) Known() bool {
	return knownMethods[m]
}

func (m Method) String() string {
	return string(m)
}
