package response

import (
	"encoding/json"

	"github.com/Brownie44l1/pdaq-server/internal/headers"
)

const notFoundPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>404 Not Found</title></head>
<body><h1>404 Not Found</h1><p>The requested page does not exist.</p></body>
</html>`

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error string `json:"error"`
}

// JSON marshals v into a response with the default JSON headers.
// A value that cannot be marshaled yields a 500.
func JSON(status StatusCode, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return InternalServerError()
	}
	return New(status, headers.DefaultJSON(), string(body))
}

// OK is a 200 with v as the JSON body
func OK(v any) *Response {
	return JSON(StatusOK, v)
}

// Created is a 201 with v as the JSON body
func Created(v any) *Response {
	return JSON(StatusCreated, v)
}

// HTML is a 200 with an HTML body
func HTML(body string) *Response {
	return New(StatusOK, headers.DefaultHTML(), body)
}

// NoContent is an empty 204
func NoContent() *Response {
	return New(StatusNoContent, headers.DefaultJSON(), "")
}

func errorResponse(status StatusCode, msg string) *Response {
	return JSON(status, errorBody{Error: msg})
}

// NotFoundHTML is the 404 page for browsers
func NotFoundHTML() *Response {
	return New(StatusNotFound, headers.DefaultHTML(), notFoundPage)
}

// NotFoundJSON reports that resource does not exist
func NotFoundJSON(resource string) *Response {
	return errorResponse(StatusNotFound, resource+" not found")
}

// Options answers a CORS preflight. origin is echoed only if cfg allows it.
func Options(cfg headers.CORSConfig, origin string) *Response {
	return New(StatusNoContent, headers.Preflight(cfg, origin), "")
}

func BadRequest(msg string) *Response {
	return errorResponse(StatusBadRequest, msg)
}

// MissingBody is a 400 for requests that need a body. hint usually lists
// the required fields.
func MissingBody(hint string) *Response {
	return BadRequest("Missing request body." + hint)
}

// InvalidBody is a 400 for a body that is not valid JSON or not the
// expected shape.
func InvalidBody(hint string) *Response {
	return BadRequest("Invalid request body." + hint)
}

func Unauthorized() *Response {
	return errorResponse(StatusUnauthorized, "Invalid authentication credentials.")
}

func Forbidden() *Response {
	return errorResponse(StatusForbidden, "User not authorized.")
}

func InternalServerError() *Response {
	return New(StatusInternalServerError, headers.DefaultJSON(), `{"error":"Internal server error."}`)
}
