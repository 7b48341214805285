package headers

import (
	"strconv"
	"strings"
	"time"
)

// httpDate is the IMF-fixdate layout used by the Date header.
const httpDate = "Mon, 02 Jan 2006 15:04:05 GMT"

var now = time.Now

// CORSConfig configures the preflight header set
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig allows the local web client
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{
			"http://localhost:8080",
			"http://localhost.:8080",
			"http://127.0.0.1:8080",
		},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{ContentType, SessionID},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
}

// IsAllowedOrigin reports whether origin is on the allow-list
func (c CORSConfig) IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func base() *Headers {
	return NewHeaders().With(
		[2]string{AllowCredentials, "true"},
		[2]string{Date, now().UTC().Format(httpDate)},
	)
}

// DefaultJSON is the header set for JSON bodies
func DefaultJSON() *Headers {
	return base().With([2]string{ContentType, "application/json"})
}

// DefaultHTML is the header set for HTML bodies
func DefaultHTML() *Headers {
	return base().With([2]string{ContentType, "text/html; charset=utf-8"})
}

// DefaultOptions is the preflight header set for the default CORS config
func DefaultOptions() *Headers {
	return Preflight(DefaultCORSConfig(), "")
}

// Preflight builds the CORS preflight header set. The request origin is
// echoed back only when it is on the allow-list.
func Preflight(cfg CORSConfig, origin string) *Headers {
	h := NewHeaders().With(
		[2]string{Date, now().UTC().Format(httpDate)},
		[2]string{AllowMethods, strings.Join(cfg.AllowedMethods, ", ")},
		[2]string{AllowHeaders, strings.Join(cfg.AllowedHeaders, ", ")},
		[2]string{MaxAge, strconv.Itoa(int(cfg.MaxAge.Seconds()))},
	)
	if cfg.AllowCredentials {
		h.Insert(AllowCredentials, "true")
	}
	if cfg.IsAllowedOrigin(origin) {
		h.Insert(AllowOrigin, origin)
	}
	return h
}
