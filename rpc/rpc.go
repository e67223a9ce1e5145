// Package rpc exposes read-only lobby statistics over net/rpc for admin
// tooling.
package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/connectfour/lobby"
	"github.com/wfunc/connectfour/logger"
	"github.com/wfunc/connectfour/network"
	"github.com/wfunc/connectfour/room"
)

// ServiceName is the prefix of every method, e.g. "Lobby.Stats".
const ServiceName = "Lobby"

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers service under ServiceName.
func NewServer(addr string, service *LobbyService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, service); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

// Addr is the bound address, useful when addr had port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start accepts connections until Stop.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Snapshotter is satisfied by *lobby.Lobby.
type Snapshotter interface {
	Snapshot(ctx context.Context) (lobby.Snapshot, error)
}

// LobbyService is the receiver of the exported RPC methods. Every call reads
// one snapshot taken inside the lobby loop.
type LobbyService struct {
	lobby   Snapshotter
	timeout time.Duration
}

func NewLobbyService(l Snapshotter) *LobbyService {
	return &LobbyService{lobby: l, timeout: 2 * time.Second}
}

type StatsArgs struct{}

type StatsReply struct {
	OnlinePlayers int
	Rooms         int
	Games         int
	Queued        int
}

type RoomsArgs struct {
	// OnlyAvailable limits the reply to rooms with a free seat.
	OnlyAvailable bool
}

type RoomsReply struct {
	Rooms []network.RoomSummary
}

func (ls *LobbyService) snapshot() (lobby.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ls.timeout)
	defer cancel()
	return ls.lobby.Snapshot(ctx)
}

func (ls *LobbyService) Stats(args *StatsArgs, reply *StatsReply) error {
	snap, err := ls.snapshot()
	if err != nil {
		return err
	}
	*reply = StatsReply{
		OnlinePlayers: snap.OnlinePlayers,
		Rooms:         snap.Rooms,
		Games:         snap.Games,
		Queued:        snap.Queued,
	}
	return nil
}

func (ls *LobbyService) Rooms(args *RoomsArgs, reply *RoomsReply) error {
	snap, err := ls.snapshot()
	if err != nil {
		return err
	}
	reply.Rooms = make([]network.RoomSummary, 0, len(snap.RoomList))
	for _, r := range snap.RoomList {
		if args.OnlyAvailable && r.PlayerCount >= room.MaxPlayers {
			continue
		}
		reply.Rooms = append(reply.Rooms, r)
	}
	return nil
}
