package request

import "bytes"

// Method is the closed set of methods the server understands.
// Anything else parses as MethodError.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPatch
	MethodDelete
	MethodOptions
	MethodError
)

// methods lists every variant in match order; MethodError is last.
var methods = [...]Method{
	MethodGet,
	MethodPost,
	MethodPatch,
	MethodDelete,
	MethodOptions,
	MethodError,
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPatch:
		return "PATCH"
	case MethodDelete:
		return "DELETE"
	case MethodOptions:
		return "OPTIONS"
	default:
		return "ERROR"
	}
}

// Bytes returns the wire token
func (m Method) Bytes() []byte {
	return []byte(m.String())
}

// ParseMethod returns the first method whose token prefixes b.
// It never fails: unmatched input is MethodError.
func ParseMethod(b []byte) Method {
	for _, m := range methods {
		if bytes.HasPrefix(b, m.Bytes()) {
			return m
		}
	}
	return MethodError
}

// ParseMethodString is ParseMethod for strings
func ParseMethodString(s string) Method {
	return ParseMethod([]byte(s))
}
