package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/setup"
)

// Server is an MCP HTTP server whose tools drive a wizard controller. It lets
// an agent or script walk through the same pages a person would.
type Server struct {
	ctrl       *setup.Controller
	watcher    *pageWatcher
	unwatch    func()
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	stdServer  *http.Server
	port       int
	mu         sync.Mutex
}

// New creates a server for ctrl. The server is not started until Start() is
// called, but its tool handlers can be used right away.
func New(ctrl *setup.Controller) *Server {
	w := newPageWatcher()
	return &Server{
		ctrl:    ctrl,
		watcher: w,
		unwatch: ctrl.Subscribe(w),
	}
}

// Start serves MCP on addr ("" picks a free port on 127.0.0.1). Returns the
// port once the listener is open.
func (s *Server) Start(ctx context.Context, addr string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return 0, fmt.Errorf("server already started")
	}
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	s.mcpServer = server.NewMCPServer(
		"syncwizard",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	if err := s.registerTools(); err != nil {
		return 0, fmt.Errorf("failed to register tools: %w", err)
	}

	// Pass the listener straight to Serve to avoid a TOCTOU race on the port.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mcpHandler := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	)
	mux.Handle("/mcp", mcpHandler)

	s.stdServer = &http.Server{Handler: mux}
	s.httpServer = mcpHandler

	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP server error: %v", err)
		}
	}()

	logger.Debug("MCP server ready on port %d", s.port)
	return s.port, nil
}

// Stop stops the HTTP server and detaches from the controller.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}
	if s.stdServer == nil {
		return nil
	}

	logger.Debug("Stopping MCP server")
	if err := s.stdServer.Shutdown(context.Background()); err != nil {
		logger.Warn("Error stopping MCP server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.httpServer = nil
	s.stdServer = nil
	s.mcpServer = nil
	return nil
}

// URL returns the HTTP URL for the MCP endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://localhost:%d/mcp", s.port)
}

// pageWatcher wakes waiters on every page change. It runs under the
// controller's lock, so it only signals.
type pageWatcher struct {
	mu      sync.Mutex
	changed chan struct{}
}

func newPageWatcher() *pageWatcher {
	return &pageWatcher{changed: make(chan struct{})}
}

func (w *pageWatcher) Notify(n setup.Notification) {
	if _, ok := n.(setup.PageChangedMsg); !ok {
		return
	}
	w.mu.Lock()
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()
}

// next returns a channel closed at the next page change.
func (w *pageWatcher) next() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changed
}
