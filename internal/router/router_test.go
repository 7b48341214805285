package router

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/pdaq-server/internal/database"
	"github.com/Brownie44l1/pdaq-server/internal/headers"
	"github.com/Brownie44l1/pdaq-server/internal/logging"
	"github.com/Brownie44l1/pdaq-server/internal/models"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

func newRouter(t *testing.T) *Router {
	t.Helper()
	ctx := context.Background()
	db := database.NewMock("admin")
	require.NoError(t, database.Seed(ctx, db))
	_, err := db.InsertUser(ctx, models.User{Username: "admin", PasswordHash: "secret"})
	require.NoError(t, err)
	return New(db, Options{Logger: logging.Nop()})
}

// raw builds a request. cookie and body are optional.
func raw(method, target, cookie, body string) string {
	var sb strings.Builder
	sb.WriteString(method + " " + target + " HTTP/1.1\r\nHost: localhost\r\n")
	if cookie != "" {
		sb.WriteString("Cookie: session_id=" + cookie + "\r\n")
	}
	if body != "" {
		fmt.Fprintf(&sb, "Content-Type: application/json\r\nContent-Length: %d\r\n", len(body))
	}
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}

func do(t *testing.T, r *Router, method, target, cookie, body string) *response.Response {
	t.Helper()
	req, err := request.RequestFromReader(strings.NewReader(raw(method, target, cookie, body)))
	require.NoError(t, err)
	resp := r.ServeRequest(server.NewContext(context.Background(), req, "127.0.0.1:40000"))
	require.NotNil(t, resp)
	return resp
}

func login(t *testing.T, r *Router, username, password string) string {
	t.Helper()
	resp := do(t, r, "POST", "/authentication", "",
		fmt.Sprintf(`{"username":%q,"password_hash":%q}`, username, password))
	require.Equal(t, response.StatusOK, resp.Status, resp.Body)
	return sessionCookie(t, resp)
}

func sessionCookie(t *testing.T, resp *response.Response) string {
	t.Helper()
	cookie, ok := resp.Headers.Get(headers.SetCookie)
	require.True(t, ok)
	v, _, _ := strings.Cut(cookie, ";")
	token, ok := strings.CutPrefix(v, headers.SessionID+"=")
	require.True(t, ok)
	return token
}

func TestMatchPath(t *testing.T) {
	assert.Equal(t, Params{}, matchPath("", ""))
	assert.Equal(t, Params{"id": "7"}, matchPath("/:id", "/7"))
	assert.Equal(t, Params{"id": "1", "datetime": "2025-01-01T00:00:00Z"},
		matchPath("/:id/:datetime", "/1/2025-01-01T00%3A00%3A00Z"))
	assert.Nil(t, matchPath("/:id", ""))
	assert.Nil(t, matchPath("/:id", "/"))
	assert.Nil(t, matchPath("/profile", "/other"))
	assert.Equal(t, []string{"id", "datetime"}, extractParams("/:id/:datetime"))
}

func TestMatchOrder(t *testing.T) {
	r := newRouter(t)

	route, p := r.Match(request.PathSessionSensorData, request.MethodGet, "/session/3")
	require.NotNil(t, route)
	assert.Equal(t, "/session/:session_id", route.Pattern)
	assert.Equal(t, "3", p["session_id"])

	route, _ = r.Match(request.PathUser, request.MethodGet, "/profile/")
	require.NotNil(t, route)
	assert.Equal(t, "/profile", route.Pattern)

	route, _ = r.Match(request.PathSensor, request.MethodPost, "/3")
	assert.Nil(t, route)
}

func TestOptionsPreflight(t *testing.T) {
	r := newRouter(t)

	req := "OPTIONS /users HTTP/1.1\r\nOrigin: http://localhost:8080\r\n\r\n"
	parsed, err := request.RequestFromReader(strings.NewReader(req))
	require.NoError(t, err)
	resp := r.ServeRequest(server.NewContext(context.Background(), parsed, "127.0.0.1:1"))

	assert.Equal(t, response.StatusNoContent, resp.Status)
	origin, _ := resp.Headers.Get(headers.AllowOrigin)
	assert.Equal(t, "http://localhost:8080", origin)
	methods, _ := resp.Headers.Get(headers.AllowMethods)
	assert.Equal(t, "GET, POST, PATCH, DELETE, OPTIONS", methods)
}

func TestAllowedOriginOnResponses(t *testing.T) {
	r := newRouter(t)

	req := "GET /sensors/1 HTTP/1.1\r\nOrigin: http://localhost:8080\r\n\r\n"
	parsed, err := request.RequestFromReader(strings.NewReader(req))
	require.NoError(t, err)
	resp := r.ServeRequest(server.NewContext(context.Background(), parsed, "127.0.0.1:1"))
	origin, ok := resp.Headers.Get(headers.AllowOrigin)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8080", origin)

	resp = do(t, r, "GET", "/sensors/1", "", "")
	_, ok = resp.Headers.Get(headers.AllowOrigin)
	assert.False(t, ok)

	for _, line := range []string{"GET /nope HTTP/1.1", "FOO /users HTTP/1.1", "DELETE / HTTP/1.1"} {
		parsed, err := request.RequestFromReader(strings.NewReader(line + "\r\nOrigin: http://localhost:8080\r\n\r\n"))
		require.NoError(t, err)
		resp := r.ServeRequest(server.NewContext(context.Background(), parsed, "127.0.0.1:1"))
		assert.Equal(t, response.StatusNotFound, resp.Status, line)
		origin, ok := resp.Headers.Get(headers.AllowOrigin)
		assert.True(t, ok, line)
		assert.Equal(t, "http://localhost:8080", origin, line)
	}
}

func TestNotFound(t *testing.T) {
	r := newRouter(t)

	resp := do(t, r, "GET", "/nope", "", "")
	assert.Equal(t, response.StatusNotFound, resp.Status)
	assert.JSONEq(t, `{"error":"/nope not found"}`, resp.Body)

	resp = do(t, r, "FOO", "/users", "", "")
	assert.Equal(t, response.StatusNotFound, resp.Status)
	assert.JSONEq(t, `{"error":"/users not found"}`, resp.Body)

	resp = do(t, r, "GET", "/sensors/1/extra", "", "")
	assert.JSONEq(t, `{"error":"/sensors/1/extra not found"}`, resp.Body)
}

func TestIndex(t *testing.T) {
	r := newRouter(t)

	resp := do(t, r, "GET", "/", "", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, "PDAQ Server")
	ct, _ := resp.Headers.Get(headers.ContentType)
	assert.True(t, strings.HasPrefix(ct, "text/html"))

	resp = do(t, r, "DELETE", "/", "", "")
	assert.Equal(t, response.StatusNotFound, resp.Status)
	ct, _ = resp.Headers.Get(headers.ContentType)
	assert.True(t, strings.HasPrefix(ct, "text/html"))
}

func TestCreateUser(t *testing.T) {
	r := newRouter(t)

	resp := do(t, r, "POST", "/users", "", `{"username":"bob","password_hash":"h"}`)
	assert.Equal(t, response.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"username":"bob"}`, resp.Body)

	resp = do(t, r, "POST", "/users", "", `{"username":"bob","password_hash":"h"}`)
	assert.Equal(t, response.StatusBadRequest, resp.Status)
	assert.JSONEq(t, `{"error":"Error creating user."}`, resp.Body)

	hint := models.User{}.RequiredValues()
	resp = do(t, r, "POST", "/users", "", "")
	assert.Equal(t, response.StatusBadRequest, resp.Status)
	assert.Equal(t, response.MissingBody(hint).Body, resp.Body)

	resp = do(t, r, "POST", "/users", "", "{not json")
	assert.Equal(t, response.StatusBadRequest, resp.Status)
	assert.Equal(t, response.InvalidBody(hint).Body, resp.Body)

	for _, body := range []string{"null", "[]", `"bob"`, "42"} {
		resp = do(t, r, "POST", "/users", "", body)
		assert.Equal(t, response.StatusBadRequest, resp.Status, body)
		assert.Equal(t, response.InvalidBody(hint).Body, resp.Body, body)
	}

	resp = do(t, r, "POST", "/users", "", `{"username":"carol"}`)
	assert.JSONEq(t, `{"error":"Invalid user data."}`, resp.Body)

	resp = do(t, r, "GET", "/users/bob", "", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `{"username":"bob"}`, resp.Body)

	resp = do(t, r, "GET", "/users/nobody", "", "")
	assert.Equal(t, response.StatusNotFound, resp.Status)
	assert.JSONEq(t, `{"error":"/users/nobody not found"}`, resp.Body)
}

func TestAuthentication(t *testing.T) {
	r := newRouter(t)

	resp := do(t, r, "POST", "/authentication", "", `{"username":"user_1","password_hash":"wrong"}`)
	assert.Equal(t, response.StatusUnauthorized, resp.Status)

	token := login(t, r, "user_1", "pass_1")

	resp = do(t, r, "GET", "/users/profile", token, "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `{"username":"user_1"}`, resp.Body)

	// listing users is admin only
	assert.Equal(t, response.StatusUnauthorized, do(t, r, "GET", "/users", "", "").Status)
	assert.Equal(t, response.StatusUnauthorized, do(t, r, "GET", "/users", "bogus", "").Status)
	assert.Equal(t, response.StatusForbidden, do(t, r, "GET", "/users", token, "").Status)

	admin := login(t, r, "admin", "secret")
	resp = do(t, r, "GET", "/users", admin, "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `{"users":["admin","user_1","user_2","user_3","user_4"]}`, resp.Body)

	// renew replaces the token
	resp = do(t, r, "PATCH", "/authentication", token, "")
	require.Equal(t, response.StatusOK, resp.Status)
	renewed := sessionCookie(t, resp)
	assert.NotEqual(t, token, renewed)
	assert.Equal(t, response.StatusNotFound, do(t, r, "GET", "/users/profile", token, "").Status)
	assert.Equal(t, response.StatusOK, do(t, r, "GET", "/users/profile", renewed, "").Status)

	assert.Equal(t, response.StatusNoContent, do(t, r, "DELETE", "/authentication", renewed, "").Status)
	assert.Equal(t, response.StatusUnauthorized, do(t, r, "DELETE", "/authentication", renewed, "").Status)
	assert.Equal(t, response.StatusUnauthorized, do(t, r, "PATCH", "/authentication", "", "").Status)

	resp = do(t, r, "GET", "/users/profile", renewed, "")
	assert.Equal(t, response.StatusNotFound, resp.Status)
	assert.JSONEq(t, `{"error":"User not found"}`, resp.Body)
}

func TestUpdateDeleteUser(t *testing.T) {
	r := newRouter(t)
	token := login(t, r, "user_1", "pass_1")

	assert.Equal(t, response.StatusUnauthorized,
		do(t, r, "PATCH", "/users/user_1", "", `{"password_hash":"new"}`).Status)
	assert.Equal(t, response.StatusForbidden,
		do(t, r, "PATCH", "/users/user_2", token, `{"password_hash":"new"}`).Status)

	resp := do(t, r, "PATCH", "/users/user_1", token, `{"username":"renamed","password_hash":"new"}`)
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `{"username":"user_1"}`, resp.Body)
	login(t, r, "user_1", "new")

	assert.Equal(t, response.StatusBadRequest,
		do(t, r, "PATCH", "/users/user_1", token, `{"password_hash":""}`).Status)

	admin := login(t, r, "admin", "secret")
	assert.Equal(t, response.StatusNoContent, do(t, r, "DELETE", "/users/user_2", admin, "").Status)
	assert.Equal(t, response.StatusNotFound, do(t, r, "GET", "/users/user_2", "", "").Status)

	assert.Equal(t, response.StatusNoContent, do(t, r, "DELETE", "/users/user_1", token, "").Status)
	assert.Equal(t, response.StatusNotFound, do(t, r, "GET", "/users/user_1", "", "").Status)
}

func TestSensors(t *testing.T) {
	r := newRouter(t)

	resp := do(t, r, "GET", "/sensors", "", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `[
		{"id":1,"type":"sensor_type_1"},
		{"id":2,"type":"sensor_type_2"},
		{"id":3,"type":"sensor_type_3"},
		{"id":4,"type":"sensor_type_4"}]`, resp.Body)

	resp = do(t, r, "GET", "/sensors/abc", "", "")
	assert.Equal(t, response.StatusBadRequest, resp.Status)
	assert.JSONEq(t, `{"error":"Invalid id."}`, resp.Body)

	resp = do(t, r, "POST", "/sensors", "", `{"type":"thermometer"}`)
	assert.Equal(t, response.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"id":5,"type":"thermometer"}`, resp.Body)

	resp = do(t, r, "POST", "/sensors", "", `{"type":""}`)
	assert.JSONEq(t, `{"error":"Invalid sensor data."}`, resp.Body)

	// the id in the path wins over the body
	resp = do(t, r, "PATCH", "/sensors/5", "", `{"id":99,"type":"barometer"}`)
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `{"id":5,"type":"barometer"}`, resp.Body)

	resp = do(t, r, "PATCH", "/sensors/5", "", "")
	assert.Equal(t, response.StatusBadRequest, resp.Status)
	resp = do(t, r, "PATCH", "/sensors/5", "", "null")
	assert.Equal(t, response.InvalidBody(models.Sensor{}.RequiredValues()).Body, resp.Body)

	assert.Equal(t, response.StatusNoContent, do(t, r, "DELETE", "/sensors/5", "", "").Status)
	resp = do(t, r, "GET", "/sensors/5", "", "")
	assert.Equal(t, response.StatusNotFound, resp.Status)
	assert.JSONEq(t, `{"error":"/sensors/5 not found"}`, resp.Body)
	assert.Equal(t, response.StatusNotFound, do(t, r, "DELETE", "/sensors/5", "", "").Status)
}

func TestSessions(t *testing.T) {
	r := newRouter(t)

	resp := do(t, r, "GET", "/sessions?username=user_2", "", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `[{"session_id":2,"username":"user_2"}]`, resp.Body)

	resp = do(t, r, "POST", "/sessions", "", `{"username":"ghost"}`)
	assert.Equal(t, response.StatusBadRequest, resp.Status)
	assert.JSONEq(t, `{"error":"Error creating session."}`, resp.Body)

	resp = do(t, r, "POST", "/sessions", "", `{"username":"user_1"}`)
	assert.Equal(t, response.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"session_id":5,"username":"user_1"}`, resp.Body)

	resp = do(t, r, "PATCH", "/sessions/5", "", `{"username":"user_3"}`)
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `{"session_id":5,"username":"user_3"}`, resp.Body)

	resp = do(t, r, "GET", "/sessions/5", "", "")
	assert.JSONEq(t, `{"session_id":5,"username":"user_3"}`, resp.Body)

	assert.Equal(t, response.StatusNoContent, do(t, r, "DELETE", "/sessions/5", "", "").Status)
	assert.Equal(t, response.StatusNotFound, do(t, r, "GET", "/sessions/5", "", "").Status)
}

func TestSessionSensors(t *testing.T) {
	r := newRouter(t)

	resp := do(t, r, "GET", "/sessions-sensors/session/1", "", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `[{"id":1,"session_id":1,"sensor_id":1}]`, resp.Body)

	resp = do(t, r, "GET", "/sessions-sensors/session/x", "", "")
	assert.JSONEq(t, `{"error":"Invalid session_id."}`, resp.Body)

	resp = do(t, r, "POST", "/sessions-sensors", "", `{"session_id":1,"sensor_id":42}`)
	assert.JSONEq(t, `{"error":"Error creating session sensor."}`, resp.Body)

	resp = do(t, r, "POST", "/sessions-sensors", "", `{"session_id":1,"sensor_id":2}`)
	assert.Equal(t, response.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"id":5,"session_id":1,"sensor_id":2}`, resp.Body)

	resp = do(t, r, "PATCH", "/sessions-sensors/5", "", `{"sensor_id":3}`)
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `{"id":5,"session_id":1,"sensor_id":3}`, resp.Body)

	resp = do(t, r, "GET", "/sessions-sensors/5", "", "")
	assert.JSONEq(t, `{"id":5,"session_id":1,"sensor_id":3}`, resp.Body)

	assert.Equal(t, response.StatusNoContent, do(t, r, "DELETE", "/sessions-sensors/5", "", "").Status)
	assert.Equal(t, response.StatusNotFound, do(t, r, "GET", "/sessions-sensors/5", "", "").Status)
}

func TestSessionSensorData(t *testing.T) {
	r := newRouter(t)

	resp := do(t, r, "GET", "/sessions-sensors-data/1/2025-01-01T00:00:00Z", "", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `{"id":1,"datetime":"2025-01-01T00:00:00Z","data_blob":{"value":1}}`, resp.Body)

	batch := `{"datapoints":[
		{"id":1,"datetime":"2025-02-01T00:00:00Z","data_blob":{"value":10}},
		{"id":1,"datetime":"2025-03-01T00:00:00Z","data_blob":{"value":11}}]}`
	resp = do(t, r, "POST", "/sessions-sensors-data/batch", "", batch)
	assert.Equal(t, response.StatusNoContent, resp.Status, resp.Body)

	resp = do(t, r, "GET", "/sessions-sensors-data/session/1?after=2025-01-01T00:00:00Z", "", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `[
		{"id":1,"datetime":"2025-02-01T00:00:00Z","data_blob":{"value":10}},
		{"id":1,"datetime":"2025-03-01T00:00:00Z","data_blob":{"value":11}}]`, resp.Body)

	resp = do(t, r, "GET", "/sessions-sensors-data/1", "", "")
	assert.Contains(t, resp.Body, "2025-01-01T00:00:00Z")
	assert.Contains(t, resp.Body, "2025-03-01T00:00:00Z")

	// one bad link rolls back the whole batch
	bad := `{"datapoints":[
		{"id":2,"datetime":"2025-05-01T00:00:00Z","data_blob":{}},
		{"id":99,"datetime":"2025-05-01T00:00:00Z","data_blob":{}}]}`
	resp = do(t, r, "POST", "/sessions-sensors-data/batch", "", bad)
	assert.Equal(t, response.StatusBadRequest, resp.Status)
	assert.JSONEq(t, `{"error":"Error creating session sensor data batch."}`, resp.Body)
	resp = do(t, r, "GET", "/sessions-sensors-data/session/2", "", "")
	assert.JSONEq(t, `[{"id":2,"datetime":"2025-01-02T00:00:00Z","data_blob":{"value":2}}]`, resp.Body)

	resp = do(t, r, "POST", "/sessions-sensors-data", "", `{"id":2,"datetime":"2025-06-01T00:00:00Z","data_blob":"flat"}`)
	assert.JSONEq(t, `{"error":"Invalid session sensor data."}`, resp.Body)

	resp = do(t, r, "POST", "/sessions-sensors-data", "", `{"id":2,"datetime":"2025-06-01T00:00:00Z","data_blob":{"v":1}}`)
	assert.Equal(t, response.StatusCreated, resp.Status)

	resp = do(t, r, "PATCH", "/sessions-sensors-data/2/2025-06-01T00:00:00Z", "", `{"data_blob":{"v":2}}`)
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.JSONEq(t, `{"id":2,"datetime":"2025-06-01T00:00:00Z","data_blob":{"v":2}}`, resp.Body)

	assert.Equal(t, response.StatusNoContent,
		do(t, r, "DELETE", "/sessions-sensors-data/2/2025-06-01T00:00:00Z", "", "").Status)
	assert.Equal(t, response.StatusNotFound,
		do(t, r, "GET", "/sessions-sensors-data/2/2025-06-01T00:00:00Z", "", "").Status)
}

func TestEndToEnd(t *testing.T) {
	db := database.NewMock()
	rt := New(db, Options{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := server.New(server.Options{Logger: logging.Nop()}, server.Chain(rt,
		server.RecoveryMiddleware(logging.Nop()),
		server.LoggingMiddleware(logging.Nop()),
	))
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Write([]byte(raw("POST", "/users", "", `{"username":"bob","password_hash":"h"}`)))
	require.NoError(t, err)
	out, err := io.ReadAll(conn)
	require.NoError(t, err)

	head, body, ok := strings.Cut(string(out), "\r\n\r\n")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 201 Created\r\n"), head)
	assert.Contains(t, head, "content-length: 18\r\n")
	assert.Equal(t, `{"username":"bob"}`, body)

	user, err := db.User(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "h", user.PasswordHash)
}
