package request

import "strings"

// PathKind tags which route prefix a Path matched.
type PathKind int

const (
	PathIndex PathKind = iota
	PathNotFound
	PathAuthentication
	PathUser
	PathSensor
	PathSession
	PathSessionSensor
	PathSessionSensorData
)

// Route prefixes. NotFound has none: it carries the whole original path.
const (
	IndexEndpoint             = "/"
	AuthenticationEndpoint    = "/authentication"
	UserEndpoint              = "/users"
	SensorEndpoint            = "/sensors"
	SessionEndpoint           = "/sessions"
	SessionSensorEndpoint     = "/sessions-sensors"
	SessionSensorDataEndpoint = "/sessions-sensors-data"
)

var routes = []struct {
	prefix string
	kind   PathKind
}{
	{IndexEndpoint, PathIndex},
	{AuthenticationEndpoint, PathAuthentication},
	{UserEndpoint, PathUser},
	{SensorEndpoint, PathSensor},
	{SessionEndpoint, PathSession},
	{SessionSensorEndpoint, PathSessionSensor},
	{SessionSensorDataEndpoint, PathSessionSensorData},
}

func (k PathKind) String() string {
	switch k {
	case PathIndex:
		return "Index"
	case PathNotFound:
		return "NotFound"
	case PathAuthentication:
		return "Authentication"
	case PathUser:
		return "User"
	case PathSensor:
		return "Sensor"
	case PathSession:
		return "Session"
	case PathSessionSensor:
		return "SessionSensor"
	case PathSessionSensorData:
		return "SessionSensorData"
	default:
		return "Unknown"
	}
}

// Path is a classified request path: the matched prefix kind and the
// sub-path that followed it. For PathNotFound, Sub is the original path.
type Path struct {
	Kind PathKind
	Sub  string
}

// ParsePath splits raw at the first '/' after the leading slash and matches
// the first segment against the route prefixes.
func ParsePath(raw string) Path {
	if raw == "" {
		return Path{Kind: PathNotFound, Sub: raw}
	}

	base, sub := raw, ""
	if first, rest, ok := strings.Cut(raw[1:], "/"); ok {
		base, sub = "/"+first, "/"+rest
	}

	for _, r := range routes {
		if r.prefix == base {
			return Path{Kind: r.kind, Sub: sub}
		}
	}
	return Path{Kind: PathNotFound, Sub: raw}
}

// Base returns the route prefix for the path kind
func (p Path) Base() string {
	for _, r := range routes {
		if r.kind == p.Kind {
			return r.prefix
		}
	}
	return ""
}

// String rebuilds the path as it appeared on the wire
func (p Path) String() string {
	return p.Base() + p.Sub
}

// Segment is Subsection applied to the path's own sub-path
func (p Path) Segment(index int) (string, bool) {
	return Subsection(p.Sub, index)
}

// Subsection returns the index-th segment of subpath, skipping the empty
// element before the leading slash: Subsection("/session/42", 1) is "42".
func Subsection(subpath string, index int) (string, bool) {
	if subpath == "" || index < 0 {
		return "", false
	}
	parts := strings.Split(subpath, "/")
	if index+1 >= len(parts) {
		return "", false
	}
	return parts[index+1], true
}
