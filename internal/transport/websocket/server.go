package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/remotepad/internal/connection"
	"github.com/nerrad567/remotepad/internal/infrastructure/network"
)

// shutdownTimeout bounds http.Server.Shutdown during TearDown.
const shutdownTimeout = 5 * time.Second

// wildcardHost is bound when the Wi-Fi interface is not requested.
const wildcardHost = "0.0.0.0"

// upgrader accepts any origin: pads connect from native apps, not browsers.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Server is the WebSocket server transport.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Server struct {
	cfg     connection.WebsocketServerConfig
	logger  connection.Logger
	network network.Info
	state   *connection.Stream[connection.State]
	data    *connection.Stream[string]
	listen  func(ctx context.Context, network, address string) (net.Listener, error)

	mu      sync.Mutex
	srv     *http.Server
	hub     *hub
	group   *errgroup.Group
	addr    string
	stopped bool
}

var (
	_ connection.Connection = (*Server)(nil)
	_ connection.Receiver   = (*Server)(nil)
)

// NewServer creates a WebSocket server for cfg. info is consulted only when
// cfg.UseWifiInterface is set. A nil logger discards output.
func NewServer(cfg connection.WebsocketServerConfig, info network.Info, logger connection.Logger) *Server {
	var lc net.ListenConfig
	return &Server{
		cfg:     cfg,
		logger:  connection.OrNop(logger),
		network: info,
		state:   connection.NewStateStream(),
		data:    connection.NewDataStream(),
		listen:  lc.Listen,
	}
}

// Type implements connection.Connection.
func (s *Server) Type() connection.Type { return connection.TypeWebsocketServer }

// States implements connection.Connection.
func (s *Server) States() connection.StateSource { return s.state }

// Received implements connection.Receiver.
func (s *Server) Received() connection.DataSource { return s.data }

// Address returns the resolved listen address ("ip:port"), or "" before
// the server has started.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	h := s.hub
	s.mu.Unlock()
	if h == nil {
		return 0
	}
	return h.count()
}

// Setup binds the listener and starts serving.
func (s *Server) Setup(ctx context.Context) {
	s.publish(connection.StateWebsocketServerStarting)

	host := wildcardHost
	if s.cfg.UseWifiInterface {
		ip, state, err := s.wifiHost()
		if err != nil {
			s.logger.Warn("websocket server wifi lookup failed", "error", err)
			s.publish(state)
			return
		}
		host = ip
	}

	address := net.JoinHostPort(host, strconv.Itoa(s.cfg.Port))
	ln, err := s.listen(ctx, "tcp", address)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			s.logger.Warn("websocket server address in use", "address", address)
			s.publish(connection.StateWebsocketServerAddressInUse)
			return
		}
		s.logger.Error("websocket server bind failed", "address", address, "error", err)
		s.publish(connection.StateWebsocketServerError)
		return
	}

	h := newHub(s.logger)
	group := new(errgroup.Group)
	srv := &http.Server{
		Handler: newRouter(func(w http.ResponseWriter, r *http.Request) {
			s.handleUpgrade(w, r, h, group)
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = ln.Close()
		return
	}
	s.srv, s.hub, s.group = srv, h, group
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("websocket server started", "address", s.Address())
	s.publish(connection.StateWebsocketServerStarted)

	group.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("websocket server failed", "error", err)
			s.publish(connection.StateWebsocketServerError)
			return err
		}
		return nil
	})
}

// newRouter mounts upgrade on every path. A panicking handler answers 500
// and leaves the server running.
func newRouter(upgrade http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/*", upgrade)
	return r
}

// wifiHost resolves the Wi-Fi IPv4 address, or the state to publish when
// there is none. No bind is attempted when the radio is off.
func (s *Server) wifiHost() (string, connection.State, error) {
	if s.network == nil {
		return "", connection.StateWebsocketServerWifiDisabled, network.ErrWifiDisabled
	}
	ip, err := s.network.WifiIPv4()
	switch {
	case errors.Is(err, network.ErrWifiDisabled):
		return "", connection.StateWebsocketServerWifiDisabled, err
	case err != nil:
		return "", connection.StateWebsocketServerError, err
	}
	return ip.String(), connection.StateNone, nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request, h *hub, group *errgroup.Group) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		addr: conn.RemoteAddr().String(),
	}

	ok := h.register(c, func() {
		group.Go(func() error {
			c.writePump()
			return nil
		})
		group.Go(func() error {
			c.readPump(s.data.Publish, s.clientGone)
			return nil
		})
		s.logger.Info("websocket client connected", "client", c.addr, "clients", len(h.clients))
		s.publish(connection.StateWebsocketServerClientConnected)
	})
	if !ok {
		_ = conn.Close()
	}
}

func (s *Server) clientGone(c *client) {
	if !c.hub.unregister(c) {
		return
	}
	s.logger.Info("websocket client disconnected", "client", c.addr, "clients", c.hub.count())
	s.publish(connection.StateWebsocketServerClientDisconnected)
}

// SendData broadcasts payload as one text frame to every connected client.
func (s *Server) SendData(_ context.Context, payload string) {
	s.mu.Lock()
	h := s.hub
	s.mu.Unlock()

	if h == nil {
		s.logger.Warn("websocket server send while not running")
		s.publish(connection.StateWebsocketServerSendFailed)
		return
	}
	n := h.broadcast([]byte(payload))
	s.logger.Debug("websocket broadcast", "recipients", n)
}

// TearDown stops accepting, disconnects every client and publishes
// WEBSOCKET_SERVER_STOPPED.
func (s *Server) TearDown(ctx context.Context) {
	s.mu.Lock()
	s.stopped = true
	srv, h, group := s.srv, s.hub, s.group
	s.srv, s.hub, s.group = nil, nil, nil
	s.mu.Unlock()

	s.publish(connection.StateWebsocketServerStopping)

	if h != nil {
		h.closeAll()
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Debug("websocket server shutdown failed", "error", err)
			_ = srv.Close()
		}
		cancel()
	}
	if group != nil {
		_ = group.Wait()
	}

	s.logger.Info("websocket server stopped")
	s.publish(connection.StateWebsocketServerStopped)
}

func (s *Server) publish(st connection.State) {
	s.logger.Debug("state changed", "state", st)
	s.state.Publish(st)
}
