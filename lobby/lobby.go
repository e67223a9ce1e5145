// Package lobby coordinates sessions, matchmaking, rooms and games. All
// lobby state is owned by a single event loop: connection goroutines submit
// events and every event is applied in full before the next one starts, so
// no other goroutine observes a half-applied transition.
package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/wfunc/connectfour/broadcast"
	"github.com/wfunc/connectfour/game"
	"github.com/wfunc/connectfour/logger"
	"github.com/wfunc/connectfour/matchmaking"
	"github.com/wfunc/connectfour/network"
	"github.com/wfunc/connectfour/room"
	"github.com/wfunc/connectfour/session"
)

const DefaultEventBuffer = 256

// MaxListedRooms caps the available_rooms list. Rooms are listed oldest
// first, so the cap hides the newest open rooms.
const MaxListedRooms = 100

// Metrics receives lobby gauges and counters. monitor.Monitor implements it.
type Metrics interface {
	SetOnlinePlayers(n int)
	SetActiveRooms(n int)
	SetActiveGames(n int)
	SetQueuedPlayers(n int)
	IncMessagesReceived(msgType string)
	ObserveMessageLatency(d time.Duration)
	GameFinished(reason string)
}

type nopMetrics struct{}

func (nopMetrics) SetOnlinePlayers(int)                {}
func (nopMetrics) SetActiveRooms(int)                  {}
func (nopMetrics) SetActiveGames(int)                  {}
func (nopMetrics) SetQueuedPlayers(int)                {}
func (nopMetrics) IncMessagesReceived(string)          {}
func (nopMetrics) ObserveMessageLatency(time.Duration) {}
func (nopMetrics) GameFinished(string)                 {}

// Connect binds a freshly authenticated session.
type Connect struct {
	Session *session.Session
}

// Disconnect reports that a session's connection is gone.
type Disconnect struct {
	Session *session.Session
}

// Command is one inbound packet from a session.
type Command struct {
	Session  *session.Session
	Packet   *network.Packet
	Received time.Time
}

type snapshotRequest struct {
	reply chan Snapshot
}

// Snapshot is a point-in-time copy of the lobby counters.
type Snapshot struct {
	OnlinePlayers int
	Rooms         int
	Games         int
	Queued        int
	RoomList      []network.RoomSummary
}

type Option func(*Lobby)

func WithMetrics(m Metrics) Option {
	return func(l *Lobby) {
		if m != nil {
			l.metrics = m
		}
	}
}

func WithEventBuffer(n int) Option {
	return func(l *Lobby) {
		if n > 0 {
			l.events = make(chan any, n)
		}
	}
}

type Lobby struct {
	sessions *session.Manager
	rooms    *room.Manager
	queue    *matchmaking.Queue
	games    map[string]*game.Game
	out      broadcast.Broadcaster
	metrics  Metrics

	events chan any
	done   chan struct{}
}

func New(sessions *session.Manager, rooms *room.Manager, out broadcast.Broadcaster, opts ...Option) *Lobby {
	l := &Lobby{
		sessions: sessions,
		rooms:    rooms,
		queue:    matchmaking.NewQueue(rooms),
		games:    make(map[string]*game.Game),
		out:      out,
		metrics:  nopMetrics{},
		events:   make(chan any, DefaultEventBuffer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run applies submitted events until ctx is cancelled.
func (l *Lobby) Run(ctx context.Context) error {
	defer close(l.done)
	logger.Log.Info("lobby started")
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("lobby stopped")
			return ctx.Err()
		case ev := <-l.events:
			l.Handle(ev)
		}
	}
}

// Submit queues an event for the loop.
func (l *Lobby) Submit(ctx context.Context, ev any) error {
	select {
	case l.events <- ev:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot asks the loop for its current counters.
func (l *Lobby) Snapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotRequest{reply: make(chan Snapshot, 1)}
	if err := l.Submit(ctx, req); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-l.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Handle applies one event. It must only be called from the goroutine
// running the loop, or directly when no loop is running.
func (l *Lobby) Handle(ev any) {
	switch e := ev.(type) {
	case Connect:
		l.connect(e.Session)
	case Disconnect:
		l.disconnect(e.Session)
	case Command:
		l.command(e)
	case snapshotRequest:
		e.reply <- l.snapshot()
	default:
		logger.Log.Warnw("unknown lobby event", "type", ev)
	}
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{
		OnlinePlayers: l.sessions.Count(),
		Rooms:         l.rooms.Count(),
		Games:         len(l.games),
		Queued:        l.queue.Len(),
		RoomList:      l.rooms.All(),
	}
}

func (l *Lobby) connect(s *session.Session) {
	if prior := l.sessions.Bind(s); prior != nil {
		logger.Log.Infow("session superseded", "user", s.UserID, "old", prior.ID, "new", s.ID)
	}
	logger.Log.Infow("player connected", "user", s.UserID, "session", s.ID)
	l.sendData(s.UserID, network.MsgTypeAvailableRooms, l.roomList())
	l.updateGauges()
}

func (l *Lobby) disconnect(s *session.Session) {
	if !l.sessions.Unbind(s) {
		logger.Log.Debugw("stale disconnect ignored", "user", s.UserID, "session", s.ID)
		return
	}
	userID := s.UserID
	logger.Log.Infow("player disconnected", "user", userID, "session", s.ID)

	l.queue.Dequeue(userID)

	r, ok := l.rooms.RoomOf(userID)
	if !ok {
		l.updateGauges()
		return
	}
	if g := l.games[r.ID]; g != nil && g.IsSeated(userID) {
		res, err := g.Leave(userID)
		if err != nil {
			logger.Log.Errorw("leave game", "user", userID, "room", r.ID, "error", err)
		}
		l.finish(g, res)
		return
	}
	if _, deleted := l.rooms.LeaveRoom(userID); deleted {
		delete(l.games, r.ID)
	}
	l.roomsChanged()
}

func (l *Lobby) command(c Command) {
	s, p := c.Session, c.Packet
	if !l.sessions.IsCurrent(s) {
		logger.Log.Debugw("command from superseded session dropped", "user", s.UserID, "session", s.ID)
		return
	}
	s.Touch()

	name := network.MsgName(p.MsgID)
	l.metrics.IncMessagesReceived(name)
	if !c.Received.IsZero() {
		defer func() { l.metrics.ObserveMessageLatency(time.Since(c.Received)) }()
	}
	logger.Log.Debugw("command", "user", s.UserID, "msg", name, "len", p.Length)

	userID := s.UserID
	switch p.MsgID {
	case network.MsgTypeHeartbeat:
	case network.MsgTypeGetAvailableRooms:
		l.sendData(userID, network.MsgTypeAvailableRooms, l.roomList())
	case network.MsgTypeFindMatch:
		l.findMatch(userID)
	case network.MsgTypeCancelMatch:
		l.cancelMatch(userID)
	case network.MsgTypeCreateRoom:
		var req network.CreateRoomRequest
		if len(p.Data) > 0 && !l.decode(userID, p.Data, &req) {
			return
		}
		l.createRoom(userID, req.RoomName)
	case network.MsgTypeJoinRoom:
		if req, ok := l.roomRequest(userID, p.Data); ok {
			l.joinRoom(userID, req.RoomID)
		}
	case network.MsgTypeLeaveRoom:
		if l.leaveRoom(userID) {
			l.roomsChanged()
		}
	case network.MsgTypeJoinGame:
		if req, ok := l.roomRequest(userID, p.Data); ok {
			l.joinGame(userID, req.RoomID)
		}
	case network.MsgTypeMakeMove:
		var req network.MakeMoveRequest
		if !l.decode(userID, p.Data, &req) {
			return
		}
		if req.RoomID == "" || req.Column == nil {
			l.reject(userID, InvalidRequest)
			return
		}
		l.makeMove(userID, req.RoomID, *req.Column)
	case network.MsgTypeSurrender:
		if req, ok := l.roomRequest(userID, p.Data); ok {
			l.surrender(userID, req.RoomID)
		}
	default:
		logger.Log.Warnw("unknown message", "user", userID, "msgID", p.MsgID)
		l.reject(userID, InvalidRequest)
	}
}

func (l *Lobby) decode(userID string, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		logger.Log.Debugw("malformed payload", "user", userID, "error", err)
		l.reject(userID, InvalidRequest)
		return false
	}
	return true
}

func (l *Lobby) roomRequest(userID string, data []byte) (network.RoomRequest, bool) {
	var req network.RoomRequest
	if !l.decode(userID, data, &req) {
		return req, false
	}
	req.RoomID = strings.TrimSpace(req.RoomID)
	if req.RoomID == "" {
		l.reject(userID, InvalidRequest)
		return req, false
	}
	return req, true
}

func (l *Lobby) findMatch(userID string) {
	if err := l.queue.Enqueue(userID); err != nil {
		l.reject(userID, findMatchErrorText(err))
		return
	}
	logger.Log.Infow("player queued", "user", userID, "queued", l.queue.Len())

	first, second, ok := l.queue.NextPair()
	if !ok {
		l.updateGauges()
		return
	}
	r, err := l.rooms.CreateMatchRoom(first, second)
	if err != nil {
		logger.Log.Errorw("create match room", "first", first, "second", second, "error", err)
		l.updateGauges()
		return
	}
	logger.Log.Infow("match found", "room", r.ID, "name", r.Name, "players", r.Players)
	l.out.BroadcastToUsers(r.Players, network.MsgTypeMatchFound,
		network.Encode(network.RoomInfo{RoomID: r.ID, RoomName: r.Name}))
	l.roomsChanged()
}

func (l *Lobby) cancelMatch(userID string) {
	dequeued := l.queue.Dequeue(userID)
	left := l.leaveRoom(userID)
	switch {
	case left:
		l.roomsChanged()
	case dequeued:
		logger.Log.Infow("matchmaking cancelled", "user", userID)
		l.updateGauges()
	}
}

func (l *Lobby) createRoom(userID, name string) {
	r, err := l.rooms.CreateRoom(userID, name)
	if err != nil {
		l.reject(userID, createRoomErrorText(err))
		return
	}
	l.queue.Dequeue(userID)
	logger.Log.Infow("room created", "room", r.ID, "name", r.Name, "user", userID)
	l.send(userID, network.MsgTypeRoomCreated, network.RoomInfo{RoomID: r.ID, RoomName: r.Name})
	l.roomsChanged()
}

func (l *Lobby) joinRoom(userID, roomID string) {
	r, err := l.rooms.JoinRoom(userID, roomID)
	if err != nil {
		l.reject(userID, joinRoomErrorText(err))
		return
	}
	l.queue.Dequeue(userID)
	logger.Log.Infow("room joined", "room", r.ID, "user", userID)
	l.out.BroadcastToUsers(r.Players, network.MsgTypeJoinedRoom, network.Encode(network.JoinedRoom{
		RoomID:   r.ID,
		RoomName: r.Name,
		Players:  append([]string(nil), r.Players...),
	}))
	l.roomsChanged()
}

// leaveRoom removes userID from its room and reports whether the directory
// changed. Leaving a game in progress counts as surrender.
func (l *Lobby) leaveRoom(userID string) bool {
	r, ok := l.rooms.RoomOf(userID)
	if !ok {
		return false
	}
	if g := l.games[r.ID]; g != nil && g.IsSeated(userID) {
		if g.Phase() == game.PhasePlaying {
			res, err := g.Surrender(userID)
			if err != nil {
				logger.Log.Errorw("surrender on leave", "user", userID, "room", r.ID, "error", err)
			}
			l.finish(g, res)
			return false
		}
		delete(l.games, r.ID)
	}
	if _, deleted := l.rooms.LeaveRoom(userID); deleted {
		delete(l.games, r.ID)
	}
	logger.Log.Infow("room left", "room", r.ID, "user", userID)
	return true
}

func (l *Lobby) joinGame(userID, roomID string) {
	r, ok := l.rooms.GetRoom(roomID)
	if !ok {
		l.reject(userID, msgRoomNotFound)
		return
	}
	if !r.Has(userID) {
		l.reject(userID, msgNotRoomMember)
		return
	}

	g := l.games[roomID]
	if g == nil {
		g = game.New(roomID)
		l.games[roomID] = g
	}
	started, err := g.Seat(userID)
	if err != nil {
		l.reject(userID, msgCannotSeat)
		return
	}

	if !started {
		logger.Log.Infow("player seated", "room", roomID, "user", userID)
		l.send(userID, network.MsgTypeGameState, g.StateFor(userID))
		l.updateGauges()
		return
	}
	logger.Log.Infow("game started", "room", roomID, "players", g.Players)
	l.pushState(g)
	l.out.BroadcastToUsers(g.Players, network.MsgTypeGameStart,
		network.Encode(network.GameStart{CurrentPlayer: g.Current}))
	l.updateGauges()
}

func (l *Lobby) makeMove(userID, roomID string, column int) {
	g := l.games[roomID]
	if g == nil {
		l.reject(userID, msgGameNotFound)
		return
	}
	res, err := g.Move(userID, column)
	if err != nil {
		l.reject(userID, gameErrorText(err))
		return
	}
	logger.Log.Debugw("move", "room", g.RoomID, "user", userID, "column", res.Column, "row", res.Row)
	l.pushState(g)
	if res.Resolution != nil {
		l.finish(g, *res.Resolution)
	}
}

func (l *Lobby) surrender(userID, roomID string) {
	g := l.games[roomID]
	if g == nil {
		l.reject(userID, msgGameNotFound)
		return
	}
	res, err := g.Surrender(userID)
	if err != nil {
		l.reject(userID, gameErrorText(err))
		return
	}
	l.finish(g, res)
}

// pushState sends every seated player its own view of the board.
func (l *Lobby) pushState(g *game.Game) {
	for _, userID := range g.Players {
		l.send(userID, network.MsgTypeGameState, g.StateFor(userID))
	}
}

// finish announces a resolution and tears the room down.
func (l *Lobby) finish(g *game.Game, res game.Resolution) {
	if res.Announce {
		logger.Log.Infow("game over", "room", g.RoomID, "winner", res.WinnerID, "reason", res.Reason, "moves", g.Moves)
		l.out.BroadcastToUsers(res.Notify, network.MsgTypeGameOver, network.Encode(res.GameOver()))
		l.metrics.GameFinished(res.Reason)
	} else {
		logger.Log.Infow("game abandoned", "room", g.RoomID)
	}
	l.teardown(g.RoomID)
}

func (l *Lobby) teardown(roomID string) {
	delete(l.games, roomID)
	if r, ok := l.rooms.RemoveRoom(roomID); ok {
		logger.Log.Infow("room closed", "room", r.ID, "name", r.Name)
	}
	l.roomsChanged()
}

func (l *Lobby) roomsChanged() {
	l.out.BroadcastToAll(network.MsgTypeAvailableRooms, l.roomList())
	l.updateGauges()
}

func (l *Lobby) roomList() []byte {
	return roomListPayload(l.rooms.Available(), network.MaxPayload)
}

// roomListPayload encodes at most MaxListedRooms rooms and keeps halving
// the list until it fits in maxBytes.
func roomListPayload(rooms []network.RoomSummary, maxBytes int) []byte {
	open := len(rooms)
	if len(rooms) > MaxListedRooms {
		rooms = rooms[:MaxListedRooms]
	}
	data := network.Encode(rooms)
	for len(data) > maxBytes && len(rooms) > 0 {
		rooms = rooms[:len(rooms)/2]
		data = network.Encode(rooms)
	}
	switch {
	case len(rooms) < MaxListedRooms && len(rooms) < open:
		logger.Log.Warnw("available rooms list shortened to fit a packet", "listed", len(rooms), "open", open)
	case len(rooms) < open:
		logger.Log.Debugw("available rooms list capped", "listed", len(rooms), "open", open)
	}
	return data
}

func (l *Lobby) updateGauges() {
	l.metrics.SetOnlinePlayers(l.sessions.Count())
	l.metrics.SetActiveRooms(l.rooms.Count())
	l.metrics.SetActiveGames(len(l.games))
	l.metrics.SetQueuedPlayers(l.queue.Len())
}

func (l *Lobby) send(userID string, msgID uint16, v any) {
	l.sendData(userID, msgID, network.Encode(v))
}

func (l *Lobby) sendData(userID string, msgID uint16, data []byte) {
	err := l.out.SendToUser(userID, msgID, data)
	switch {
	case err == nil:
	case errors.Is(err, network.ErrPacketTooLarge):
		logger.Log.Errorw("send failed", "user", userID, "msg", network.MsgName(msgID), "error", err)
	default:
		logger.Log.Debugw("send skipped", "user", userID, "msg", network.MsgName(msgID), "error", err)
	}
}

func (l *Lobby) reject(userID, text string) {
	logger.Log.Debugw("request rejected", "user", userID, "reason", text)
	l.send(userID, network.MsgTypeError, network.ErrorMessage{Message: text})
}
