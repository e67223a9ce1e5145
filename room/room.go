// room/room.go
package room

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wfunc/connectfour/network"
)

// MaxPlayers is the capacity of every room.
const MaxPlayers = 2

// MaxNameLength bounds a room name in runes, after trimming.
const MaxNameLength = 64

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrNameTaken     = errors.New("room name taken")
	ErrNameTooLong   = errors.New("room name too long")
)

// Room binds up to MaxPlayers users. Players keeps join order.
type Room struct {
	ID        string
	Name      string
	Players   []string
	CreatedAt time.Time
	seq       uint64
}

func (r *Room) Full() bool {
	return len(r.Players) >= MaxPlayers
}

func (r *Room) Has(userID string) bool {
	for _, id := range r.Players {
		if id == userID {
			return true
		}
	}
	return false
}

// Summary is the public view used in the available rooms list.
func (r *Room) Summary() network.RoomSummary {
	return network.RoomSummary{RoomID: r.ID, RoomName: r.Name, PlayerCount: len(r.Players)}
}

// Manager is the room directory. A user sits in at most one room and room
// names are unique among live rooms.
type Manager struct {
	rooms   map[string]*Room  // roomID -> room
	members map[string]string // userID -> roomID
	names   map[string]string // name -> roomID
	counter int               // last generated "Room N"
	seq     uint64
	newID   func() string
	mutex   sync.RWMutex
}

func NewRoomManager() *Manager {
	return &Manager{
		rooms:   make(map[string]*Room),
		members: make(map[string]string),
		names:   make(map[string]string),
		newID:   func() string { return uuid.New().String() },
	}
}

// CreateRoom seats userID alone in a new room. An empty name gets the next
// generated "Room N".
func (m *Manager) CreateRoom(userID, name string) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, seated := m.members[userID]; seated {
		return nil, ErrAlreadyInRoom
	}
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, ErrNameTooLong
	}
	if name != "" {
		if _, taken := m.names[name]; taken {
			return nil, ErrNameTaken
		}
	}
	return m.addRoom(name, userID), nil
}

// CreateMatchRoom seats two matched users, first one first.
func (m *Manager) CreateMatchRoom(first, second string) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if first == second {
		return nil, fmt.Errorf("match %s against itself: %w", first, ErrAlreadyInRoom)
	}
	for _, id := range []string{first, second} {
		if _, seated := m.members[id]; seated {
			return nil, fmt.Errorf("match %s: %w", id, ErrAlreadyInRoom)
		}
	}
	return m.addRoom("", first, second), nil
}

func (m *Manager) addRoom(name string, players ...string) *Room {
	if name == "" {
		name = m.nextName()
	}
	m.seq++
	room := &Room{
		ID:        m.newID(),
		Name:      name,
		Players:   append([]string(nil), players...),
		CreatedAt: time.Now(),
		seq:       m.seq,
	}
	m.rooms[room.ID] = room
	m.names[name] = room.ID
	for _, id := range players {
		m.members[id] = room.ID
	}
	return room
}

// nextName skips generated names that a user already picked by hand.
func (m *Manager) nextName() string {
	for {
		m.counter++
		name := fmt.Sprintf("Room %d", m.counter)
		if _, taken := m.names[name]; !taken {
			return name
		}
	}
}

// JoinRoom appends userID to the room's players.
func (m *Manager) JoinRoom(userID, roomID string) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	if room.Full() {
		return nil, ErrRoomFull
	}
	if _, seated := m.members[userID]; seated {
		return nil, ErrAlreadyInRoom
	}

	room.Players = append(room.Players, userID)
	m.members[userID] = room.ID
	return room, nil
}

// LeaveRoom removes userID from its room, deleting the room once empty. It
// returns the room left, or nil if the user was not in one.
func (m *Manager) LeaveRoom(userID string) (room *Room, deleted bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	roomID, seated := m.members[userID]
	if !seated {
		return nil, false
	}
	room = m.rooms[roomID]
	delete(m.members, userID)

	players := make([]string, 0, len(room.Players))
	for _, id := range room.Players {
		if id != userID {
			players = append(players, id)
		}
	}
	room.Players = players

	if len(room.Players) == 0 {
		m.deleteLocked(room)
		return room, true
	}
	return room, false
}

// RemoveRoom tears a room down and unseats everyone in it.
func (m *Manager) RemoveRoom(id string) (*Room, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[id]
	if !exists {
		return nil, false
	}
	for _, userID := range room.Players {
		delete(m.members, userID)
	}
	m.deleteLocked(room)
	return room, true
}

func (m *Manager) deleteLocked(room *Room) {
	delete(m.rooms, room.ID)
	if m.names[room.Name] == room.ID {
		delete(m.names, room.Name)
	}
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// RoomOf returns the room userID sits in.
func (m *Manager) RoomOf(userID string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	roomID, seated := m.members[userID]
	if !seated {
		return nil, false
	}
	return m.rooms[roomID], true
}

// IsSeated implements matchmaking.SeatChecker.
func (m *Manager) IsSeated(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, seated := m.members[userID]
	return seated
}

// Available lists rooms with a free seat, oldest first.
func (m *Manager) Available() []network.RoomSummary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	open := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		if !room.Full() {
			open = append(open, room)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].seq < open[j].seq })

	summaries := make([]network.RoomSummary, 0, len(open))
	for _, room := range open {
		summaries = append(summaries, room.Summary())
	}
	return summaries
}

// All lists every live room, oldest first.
func (m *Manager) All() []network.RoomSummary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].seq < rooms[j].seq })

	summaries := make([]network.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, room.Summary())
	}
	return summaries
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}
