package room

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/connectfour/network"
)

// newTestManager returns a manager with predictable room ids.
func newTestManager() *Manager {
	m := NewRoomManager()
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("room-%d", n)
	}
	return m
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := newTestManager()

	room, err := manager.CreateRoom("u1", "Lobby A")
	require.NoError(t, err)
	assert.Equal(t, "room-1", room.ID)
	assert.Equal(t, "Lobby A", room.Name)
	assert.Equal(t, []string{"u1"}, room.Players)

	got, exists := manager.GetRoom(room.ID)
	require.True(t, exists)
	assert.Same(t, room, got)

	seatedIn, ok := manager.RoomOf("u1")
	require.True(t, ok)
	assert.Same(t, room, seatedIn)
	assert.True(t, manager.IsSeated("u1"))
}

func TestRoomManager_UUIDRoomIDs(t *testing.T) {
	manager := NewRoomManager()
	a, err := manager.CreateRoom("u1", "")
	require.NoError(t, err)
	b, err := manager.CreateRoom("u2", "")
	require.NoError(t, err)
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRoomManager_GeneratedNames(t *testing.T) {
	manager := newTestManager()

	r1, err := manager.CreateRoom("u1", "")
	require.NoError(t, err)
	assert.Equal(t, "Room 1", r1.Name)

	// a hand-picked name that a later generated name would collide with
	_, err = manager.CreateRoom("u2", "Room 2")
	require.NoError(t, err)

	r3, err := manager.CreateMatchRoom("u3", "u4")
	require.NoError(t, err)
	assert.Equal(t, "Room 3", r3.Name)
	assert.Equal(t, []string{"u3", "u4"}, r3.Players)
}

func TestRoomManager_CreateRoom_Errors(t *testing.T) {
	manager := newTestManager()
	_, err := manager.CreateRoom("u1", "Arena")
	require.NoError(t, err)

	_, err = manager.CreateRoom("u1", "Other")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	_, err = manager.CreateRoom("u2", "Arena")
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = manager.CreateRoom("u2", "  Arena ")
	assert.ErrorIs(t, err, ErrNameTaken)

	assert.Equal(t, 1, manager.Count())
	assert.False(t, manager.IsSeated("u2"))
}

func TestRoomManager_NameLength(t *testing.T) {
	manager := newTestManager()

	_, err := manager.CreateRoom("u1", strings.Repeat("x", MaxNameLength+1))
	assert.ErrorIs(t, err, ErrNameTooLong)
	assert.False(t, manager.IsSeated("u1"))

	// the limit counts runes, not bytes, and ignores surrounding space
	room, err := manager.CreateRoom("u1", "  "+strings.Repeat("é", MaxNameLength)+"  ")
	require.NoError(t, err)
	assert.Equal(t, MaxNameLength, len([]rune(room.Name)))
}

func TestRoomManager_NameFreedAfterRoomDeleted(t *testing.T) {
	manager := newTestManager()
	_, err := manager.CreateRoom("u1", "Arena")
	require.NoError(t, err)

	_, deleted := manager.LeaveRoom("u1")
	require.True(t, deleted)

	_, err = manager.CreateRoom("u2", "Arena")
	assert.NoError(t, err)
}

func TestRoom_JoinRoom(t *testing.T) {
	manager := newTestManager()
	room, err := manager.CreateRoom("u1", "")
	require.NoError(t, err)

	joined, err := manager.JoinRoom("u2", room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, joined.Players)
	assert.True(t, joined.Full())
}

func TestRoom_JoinRoom_Full(t *testing.T) {
	manager := newTestManager()
	room, err := manager.CreateRoom("u1", "")
	require.NoError(t, err)
	_, err = manager.JoinRoom("u2", room.ID)
	require.NoError(t, err)

	_, err = manager.JoinRoom("u3", room.ID)
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Len(t, room.Players, MaxPlayers)
	assert.False(t, manager.IsSeated("u3"))
}

func TestRoom_JoinRoom_Errors(t *testing.T) {
	manager := newTestManager()
	r1, err := manager.CreateRoom("u1", "")
	require.NoError(t, err)
	_, err = manager.CreateRoom("u2", "")
	require.NoError(t, err)

	_, err = manager.JoinRoom("u3", "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = manager.JoinRoom("u2", r1.ID)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	_, err = manager.JoinRoom("u1", r1.ID)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
	assert.Equal(t, []string{"u1"}, r1.Players)
}

func TestRoom_LeaveRoom(t *testing.T) {
	manager := newTestManager()
	room, err := manager.CreateRoom("u1", "")
	require.NoError(t, err)
	_, err = manager.JoinRoom("u2", room.ID)
	require.NoError(t, err)

	left, deleted := manager.LeaveRoom("u1")
	require.NotNil(t, left)
	assert.False(t, deleted)
	assert.Equal(t, []string{"u2"}, left.Players)
	assert.False(t, manager.IsSeated("u1"))

	left, deleted = manager.LeaveRoom("u2")
	require.NotNil(t, left)
	assert.True(t, deleted)
	_, exists := manager.GetRoom(room.ID)
	assert.False(t, exists)

	left, deleted = manager.LeaveRoom("u2")
	assert.Nil(t, left)
	assert.False(t, deleted)
}

func TestRoomManager_RemoveRoom(t *testing.T) {
	manager := newTestManager()
	room, err := manager.CreateMatchRoom("u1", "u2")
	require.NoError(t, err)

	removed, ok := manager.RemoveRoom(room.ID)
	require.True(t, ok)
	assert.Same(t, room, removed)
	assert.False(t, manager.IsSeated("u1"))
	assert.False(t, manager.IsSeated("u2"))
	assert.Equal(t, 0, manager.Count())

	_, ok = manager.RemoveRoom(room.ID)
	assert.False(t, ok)
}

func TestRoomManager_CreateMatchRoom_Errors(t *testing.T) {
	manager := newTestManager()
	_, err := manager.CreateRoom("u1", "")
	require.NoError(t, err)

	_, err = manager.CreateMatchRoom("u1", "u2")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
	_, err = manager.CreateMatchRoom("u3", "u3")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
	assert.Equal(t, 1, manager.Count())
}

func TestRoomManager_Available(t *testing.T) {
	manager := newTestManager()
	open1, err := manager.CreateRoom("u1", "First")
	require.NoError(t, err)
	_, err = manager.CreateMatchRoom("u2", "u3")
	require.NoError(t, err)
	open2, err := manager.CreateRoom("u4", "Second")
	require.NoError(t, err)

	assert.Equal(t, []network.RoomSummary{
		{RoomID: open1.ID, RoomName: "First", PlayerCount: 1},
		{RoomID: open2.ID, RoomName: "Second", PlayerCount: 1},
	}, manager.Available())
	assert.Len(t, manager.All(), 3)
}
