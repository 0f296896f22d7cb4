package server

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/devwelkin/hermes-files/internal/protocol"
	"github.com/devwelkin/hermes-files/internal/request"
	"github.com/devwelkin/hermes-files/internal/response"
)

// session serves the requests of one connection, one at a time.
type session struct {
	conn   net.Conn
	cfg    *Config
	router Router
	logger *log.Logger
	reader *request.Reader
	writer *response.Writer
	req    *request.Request
	served int
	err    error
}

type stateFunc func(*session) stateFunc

// ServeConn runs the keep-alive loop on conn until the peer closes it,
// asks for close, or an i/o or routing error ends the session. conn is
// closed on return. the returned error is nil for a normal close.
func (s *Server) ServeConn(conn net.Conn) (err error) {
	defer conn.Close()

	reader := request.NewReader(conn)
	reader.MaxHeaderBytes = s.cfg.MaxHeaderBytes
	reader.MaxBodyBytes = s.cfg.MaxBodyBytes

	ss := &session{
		conn:   conn,
		cfg:    &s.cfg,
		router: s.router,
		logger: s.cfg.Logger,
		reader: reader,
		writer: response.NewWriter(conn),
	}
	defer func() {
		// final flush, whatever path ended the session
		if flushErr := ss.writer.Close(); flushErr != nil && err == nil {
			err = fmt.Errorf("final flush: %w", flushErr)
		}
	}()

	for state := awaitingRequest; state != nil; {
		state = state(ss)
	}
	return ss.err
}

func (ss *session) fail(err error) stateFunc {
	ss.err = err
	return nil
}

func (ss *session) setReadDeadline(d time.Duration) error {
	if d > 0 {
		return ss.conn.SetReadDeadline(time.Now().Add(d))
	}
	if ss.cfg.ReadTimeout > 0 || ss.cfg.IdleTimeout > 0 {
		return ss.conn.SetReadDeadline(time.Time{})
	}
	return nil
}

// state funcs

func awaitingRequest(ss *session) stateFunc {
	wait := ss.cfg.ReadTimeout
	if ss.served > 0 && ss.cfg.IdleTimeout > 0 {
		wait = ss.cfg.IdleTimeout
	}
	if err := ss.setReadDeadline(wait); err != nil {
		return ss.fail(err)
	}

	// peek without consuming so the reader sees the whole request
	err := ss.reader.WaitForData()
	switch {
	case err == nil:
		return processing
	case errors.Is(err, io.EOF):
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded) && ss.served > 0:
		ss.logger.Printf("closing idle connection %v", ss.conn.RemoteAddr())
		return nil
	default:
		return ss.fail(fmt.Errorf("waiting for request: %w", err))
	}
}

func processing(ss *session) stateFunc {
	if err := ss.setReadDeadline(ss.cfg.ReadTimeout); err != nil {
		return ss.fail(err)
	}

	req, err := ss.reader.ReadRequest()
	if err != nil {
		if errors.Is(err, request.ErrHeaderTooLarge) || errors.Is(err, request.ErrBodyTooLarge) {
			ss.writeErrorResponse(&HandlerError{
				StatusCode: protocol.StatusBadRequest,
				Message:    "Bad Request\n",
			})
		}
		return ss.fail(fmt.Errorf("error parsing request: %w", err))
	}
	ss.req = req

	res, err := ss.router.Route(req)
	if err != nil {
		handlerErr := &HandlerError{
			StatusCode: protocol.StatusInternalServerError,
			Message:    "Internal Server Error\n",
		}
		if errors.Is(err, fs.ErrNotExist) {
			handlerErr = &HandlerError{
				StatusCode: protocol.StatusNotFound,
				Message:    "Not Found\n",
			}
		}
		ss.writeErrorResponse(handlerErr)
		return ss.fail(err)
	}

	if err := ss.writer.WriteResponse(res); err != nil {
		return ss.fail(fmt.Errorf("error writing response: %w", err))
	}
	ss.served++
	ss.logger.Printf("%v %s -> %d %s (%s)", ss.conn.RemoteAddr(), req.RequestLine,
		res.StatusCode, res.StatusMessage, humanize.Bytes(uint64(len(res.Body))))

	return responseSent
}

func responseSent(ss *session) stateFunc {
	if ss.req.KeepAlive() {
		return awaitingRequest
	}
	return nil
}

// writeErrorResponse sends a plain text error page and marks the
// connection for close. write failures are only logged, the session is
// ending anyway.
func (ss *session) writeErrorResponse(handlerErr *HandlerError) {
	body := []byte(handlerErr.Message)
	res := response.New(handlerErr.StatusCode, response.GetDefaultHeaders(len(body)), body)
	if err := ss.writer.WriteResponse(res); err != nil {
		ss.logger.Printf("error writing error response: %v", err)
		return
	}
	ss.logger.Printf("%v -> %d %s", ss.conn.RemoteAddr(), res.StatusCode, res.StatusMessage)
}
