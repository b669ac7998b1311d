package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
)

var (
	ErrInvalidPort  = errors.New("port must be between 0 and 65535")
	ErrServerClosed = errors.New("server is shut down")
)

type connHandler interface {
	Serve(conn net.Conn)
}

// Server accepts game clients and hands every connection to its own goroutine.
type Server struct {
	logger  *slog.Logger
	handler connHandler

	mu       sync.Mutex
	port     string
	listener net.Listener
	closed   bool

	wg sync.WaitGroup
}

func NewServer(logger *slog.Logger, handler connHandler, port string) *Server {
	return &Server{
		logger:  logger.With("component", "tcp_server"),
		handler: handler,
		port:    port,
	}
}

// Start binds the configured port and accepts connections in the background
// until ctx is canceled.
func (that *Server) Start(ctx context.Context) error {
	log := that.logger.With("method", "Start")

	log.Info("Starting server...", "port", that.Port())

	that.mu.Lock()
	defer that.mu.Unlock()

	if err := ValidatePort(that.port); err != nil {
		return err
	}

	if err := that.listen(that.port); err != nil {
		return err
	}

	context.AfterFunc(ctx, that.stopListening)

	log.Info("Waiting for connections", "addr", that.listener.Addr().String())

	return nil
}

// SetPort restarts the listener on another port. Connections already being served are not affected.
func (that *Server) SetPort(port string) error {
	log := that.logger.With("method", "SetPort")

	if err := ValidatePort(port); err != nil {
		return err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return ErrServerClosed
	}

	log.Warn("Restarting network listener with new port " + port)

	that.closeListener()
	that.port = port

	return that.listen(port)
}

func (that *Server) Port() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.port
}

// Addr returns the bound address, or nil while no listener is running.
func (that *Server) Addr() net.Addr {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.listener == nil {
		return nil
	}

	return that.listener.Addr()
}

// Shutdown stops accepting and waits for in-flight connections until ctx expires.
func (that *Server) Shutdown(ctx context.Context) error {
	that.stopListening()

	done := make(chan struct{})
	go func() {
		that.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for connections: %w", ctx.Err())
	}
}

func (that *Server) stopListening() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
	that.closeListener()
}

// listen must be called with mu held.
func (that *Server) listen(port string) error {
	if that.closed {
		return ErrServerClosed
	}

	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	that.listener = listener

	that.wg.Add(1)
	go that.acceptLoop(listener)

	return nil
}

// closeListener must be called with mu held.
func (that *Server) closeListener() {
	if that.listener == nil {
		return
	}

	if err := that.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		that.logger.Error("failed to close listener", "error", err)
	}

	that.listener = nil
}

func (that *Server) acceptLoop(listener net.Listener) {
	defer that.wg.Done()

	log := that.logger.With("method", "acceptLoop", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			log.Error("failed to accept connection, listener stopped", "error", err)

			that.mu.Lock()
			if that.listener == listener {
				that.closeListener()
			}
			that.mu.Unlock()

			return
		}

		log.Info("Found a connection", "remote", remoteAddr(conn))

		that.wg.Add(1)
		go func() {
			defer that.wg.Done()
			that.handler.Serve(conn)
		}()
	}
}

func ValidatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}

	return nil
}
