package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/connectfour/auth"
	"github.com/wfunc/connectfour/config"
	"github.com/wfunc/connectfour/lobby"
	"github.com/wfunc/connectfour/logger"
	"github.com/wfunc/connectfour/monitor"
	"github.com/wfunc/connectfour/network"
	"github.com/wfunc/connectfour/session"
	lobbyrpc "github.com/wfunc/connectfour/rpc"
)

type Options struct {
	HTTPAddress    string
	RPCAddress     string
	WSPath         string
	AllowedOrigins []string
	Conn           network.Options
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		HTTPAddress:    cfg.Server.HTTPAddress,
		RPCAddress:     cfg.Server.RPCAddress,
		WSPath:         cfg.Server.WSPath,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		Conn: network.Options{
			ReadLimit:    cfg.WebSocket.ReadLimit,
			SendBuffer:   cfg.WebSocket.SendBuffer,
			PingInterval: cfg.WebSocket.PingInterval,
			PongWait:     cfg.WebSocket.PongWait,
			WriteWait:    cfg.WebSocket.WriteWait,
		},
	}
}

// GameServer accepts authenticated websocket connections and feeds their
// packets into the lobby.
type GameServer struct {
	opts       Options
	lobby      *lobby.Lobby
	verifier   auth.Verifier
	monitor    *monitor.Monitor
	upgrader   websocket.Upgrader
	httpServer *http.Server
	rpcServer  *lobbyrpc.Server

	mutex        sync.Mutex
	conns        map[*network.WSConnection]struct{}
	wg           sync.WaitGroup
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewGameServer(opts Options, l *lobby.Lobby, verifier auth.Verifier, mon *monitor.Monitor) *GameServer {
	if opts.WSPath == "" {
		opts.WSPath = "/ws"
	}
	if opts.Conn.SendBuffer <= 0 {
		opts.Conn = network.DefaultOptions()
	}
	s := &GameServer{
		opts:         opts,
		lobby:        l,
		verifier:     verifier,
		monitor:      mon,
		conns:        make(map[*network.WSConnection]struct{}),
		shutdownChan: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     newOriginPolicy(opts.AllowedOrigins).check,
	}
	s.httpServer = &http.Server{
		Addr:              opts.HTTPAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler routes the websocket endpoint, /healthz and /metrics.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.opts.WSPath, s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", s.monitor.Handler())
	return mux
}

// Start serves HTTP, and the admin RPC endpoint when an address is set,
// until Shutdown.
func (s *GameServer) Start() error {
	if s.opts.RPCAddress != "" {
		rpcServer, err := lobbyrpc.NewServer(s.opts.RPCAddress, lobbyrpc.NewLobbyService(s.lobby))
		if err != nil {
			return err
		}
		s.rpcServer = rpcServer
		go rpcServer.Start()
	}

	logger.Log.Infow("game server listening", "address", s.opts.HTTPAddress, "path", s.opts.WSPath)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every live websocket and
// waits for their read loops to report the disconnects.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	err := s.httpServer.Shutdown(ctx)

	s.mutex.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	logger.Log.Info("game server stopped")
	return err
}

func (s *GameServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"uptime": s.monitor.Uptime().Truncate(time.Second).String(),
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.shutdownChan:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	userID, err := s.verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		logger.Log.Infow("authentication rejected", "remote", r.RemoteAddr, "error", err)
		s.monitor.IncAuthRejected()
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infow("failed to upgrade connection", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.handleConnection(userID, conn)
}

func (s *GameServer) track(conn *network.WSConnection) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	select {
	case <-s.shutdownChan:
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *GameServer) untrack(conn *network.WSConnection) {
	s.mutex.Lock()
	delete(s.conns, conn)
	s.mutex.Unlock()
	s.wg.Done()
}

func (s *GameServer) handleConnection(userID string, conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn, s.opts.Conn)
	go wsConn.WritePump()
	if !s.track(wsConn) {
		wsConn.Close()
		return
	}
	defer s.untrack(wsConn)

	sess := session.NewSession(uuid.NewString(), userID, wsConn)
	logger.Log.Infow("new connection", "remote", wsConn.RemoteAddr(), "user", userID, "session", sess.GetID())

	ctx := context.Background()
	if err := s.lobby.Submit(ctx, lobby.Connect{Session: sess}); err != nil {
		logger.Log.Warnw("lobby refused connection", "session", sess.GetID(), "error", err)
		wsConn.Close()
		return
	}

	defer func() {
		logger.Log.Infow("connection closed", "remote", wsConn.RemoteAddr(), "user", userID, "session", sess.GetID())
		wsConn.Close()
		if err := s.lobby.Submit(ctx, lobby.Disconnect{Session: sess}); err != nil {
			logger.Log.Debugw("disconnect not delivered", "session", sess.GetID(), "error", err)
		}
	}()

	for {
		packet, err := wsConn.ReadPacket()
		if err != nil {
			if errors.Is(err, network.ErrMalformedPacket) {
				logger.Log.Debugw("malformed packet", "session", sess.GetID(), "error", err)
				_ = sess.Send(network.MsgTypeError, network.Encode(network.ErrorMessage{Message: lobby.InvalidRequest}))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debugw("unexpected close", "session", sess.GetID(), "error", err)
			}
			return
		}
		if err := s.lobby.Submit(ctx, lobby.Command{Session: sess, Packet: packet, Received: time.Now()}); err != nil {
			return
		}
	}
}
