package server

import (
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/devwelkin/hermes-files/internal/protocol"
	"github.com/devwelkin/hermes-files/internal/request"
	"github.com/devwelkin/hermes-files/internal/response"
)

const DefaultAddr = "127.0.0.1:4221"

// HandlerError is a structured error for responses the session writes
// itself, outside of the router.
type HandlerError struct {
	StatusCode protocol.StatusCode
	Message    string
}

// Router turns a parsed request into a response. an error means the
// request could not be served and the session ends.
type Router interface {
	Route(req *request.Request) (*response.Response, error)
}

// Config holds the server settings. zero values mean "no limit" for the
// limits and timeouts.
type Config struct {
	Addr           string
	MaxHeaderBytes int
	MaxBodyBytes   int
	// MaxConns bounds concurrent sessions when > 0.
	MaxConns int
	// ReadTimeout bounds reading one request, headers and body.
	ReadTimeout time.Duration
	// IdleTimeout bounds the wait for the next request on a kept-alive
	// connection. falls back to ReadTimeout when zero.
	IdleTimeout time.Duration
	Logger      *log.Logger
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = request.DefaultMaxHeaderBytes
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = request.DefaultMaxBodyBytes
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

// Server holds the state for our http server
type Server struct {
	cfg      Config
	router   Router
	listener net.Listener
	sem      chan struct{}
	done     chan struct{}
	closed   atomic.Bool
}

// New creates a server without listening. use Serve to accept connections,
// or ServeConn to drive a single connection.
func New(cfg Config, router Router) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:    cfg,
		router: router,
		done:   make(chan struct{}),
	}
	if cfg.MaxConns > 0 {
		s.sem = make(chan struct{}, cfg.MaxConns)
	}
	return s
}

// Serve starts listening on cfg.Addr and accepts connections in the
// background.
func Serve(cfg Config, router Router) (*Server, error) {
	s := New(cfg, router)

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, err
	}
	s.listener = listener

	go s.listen()

	return s, nil
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting connections. running sessions finish on their own.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) acquire() bool {
	if s.sem == nil {
		return true
	}
	select {
	case s.sem <- struct{}{}:
		return true
	case <-s.done:
		return false
	}
}

func (s *Server) release() {
	if s.sem != nil {
		<-s.sem
	}
}

// listen is the main accept loop
func (s *Server) listen() {
	logger := s.cfg.Logger
	for {
		if !s.acquire() {
			logger.Println("listener closed, server shutting down.")
			return
		}
		conn, err := s.listener.Accept()
		if err != nil {
			s.release()
			if s.closed.Load() {
				logger.Println("listener closed, server shutting down.")
				return
			}
			logger.Printf("error accepting connection: %v", err)
			continue
		}
		go func() {
			defer s.release()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	remote := conn.RemoteAddr()
	s.cfg.Logger.Printf("accepted connection from %v", remote)
	if err := s.ServeConn(conn); err != nil {
		s.cfg.Logger.Printf("session %v ended: %v", remote, err)
		return
	}
	s.cfg.Logger.Printf("connection %v closed", remote)
}
