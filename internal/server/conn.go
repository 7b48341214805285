package server

import (
	"errors"
	"net"
	"time"

	"github.com/Brownie44l1/pdaq-server/internal/logging"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
)

// serveConn reads one request, dispatches it and writes the response.
// The connection is always closed afterwards.
func (s *Server) serveConn(conn net.Conn) {
	s.setActive(conn)
	defer s.setActive(nil)
	defer conn.Close()

	s.metrics.ConnectionsTotal.Add(1)
	s.metrics.ActiveConnections.Add(1)
	defer s.metrics.ActiveConnections.Add(-1)

	remote := conn.RemoteAddr().String()

	if s.opts.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
			s.logger.Warn("Could not set read deadline", logging.F("error", err))
		}
	}

	reader := request.NewReader(conn)
	reader.MaxBodySize = s.opts.MaxBodySize
	reader.Logger = s.logger

	start := time.Now()
	req, err := reader.ReadRequest()
	if err != nil {
		s.handleReadError(conn, remote, start, err)
		return
	}

	c := NewContext(s.baseCtx, req, remote)
	resp := s.handler.ServeRequest(c)
	if resp == nil {
		s.logger.Error("Handler returned no response",
			logging.F("path", req.Path.String()),
			logging.F("request_id", c.RequestID),
		)
		resp = response.InternalServerError()
	}

	s.write(conn, remote, resp)
}

// handleReadError answers requests that were rejected after their headers
// were readable. Everything else is a transport failure and gets no response.
func (s *Server) handleReadError(conn net.Conn, remote string, start time.Time, err error) {
	var msg string
	switch {
	case errors.Is(err, request.ErrHeaderTooLarge):
		msg = "Request headers too large."
	case errors.Is(err, request.ErrBodyTooLarge):
		msg = "Request body too large."
	case errors.Is(err, request.ErrIncompleteBody):
		msg = "Request body shorter than content-length."
	case errors.Is(err, request.ErrConnectionClosed):
		s.metrics.DroppedTotal.Add(1)
		s.logger.Debug("Connection closed before a request was read", logging.F("remote", remote))
		return
	default:
		s.metrics.DroppedTotal.Add(1)
		s.logger.Warn("Error reading request", logging.F("error", err), logging.F("remote", remote))
		return
	}

	s.logger.Warn("Rejecting request", logging.F("error", err), logging.F("remote", remote))
	s.metrics.RecordRequest(int(response.StatusBadRequest), time.Since(start))
	s.write(conn, remote, response.BadRequest(msg))
}

func (s *Server) write(conn net.Conn, remote string, resp *response.Response) {
	w := response.NewWriter(conn)
	err := w.WriteResponse(resp)
	if w.HadError() {
		s.logger.Warn("Error writing response",
			logging.F("error", err),
			logging.F("remote", remote),
			logging.F("status", int(resp.Status)),
			logging.F("written", w.BytesWritten()),
		)
		return
	}
	s.logger.Debug("Response written",
		logging.F("remote", remote),
		logging.F("status", int(w.StatusCode())),
		logging.F("written", w.BytesWritten()),
		logging.F("complete", w.Done()),
	)
}
