package session

import (
	"encoding/json"
	"net"
	"testing"

	"github.com/wfunc/connectfour/network"
)

type sent struct {
	msgID uint16
	data  []byte
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	Sent   []sent
	Closed bool
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	if m.Closed {
		return network.ErrConnectionClosed
	}
	m.Sent = append(m.Sent, sent{msgID, data})
	return nil
}
func (m *MockConnection) Close() error                         { m.Closed = true; return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.Count() != 0 {
		t.Fatalf("Expected empty manager, got %d sessions", manager.Count())
	}
}

func TestManager_Bind_Resolve_Unbind(t *testing.T) {
	manager := NewManager()
	sess := NewSession("s1", "u1", &MockConnection{})

	if prior := manager.Bind(sess); prior != nil {
		t.Fatalf("First bind should not supersede anything, got %v", prior.ID)
	}

	got, ok := manager.Resolve("u1")
	if !ok || got != sess {
		t.Fatal("Resolve should return the bound session")
	}
	if !manager.IsCurrent(sess) {
		t.Fatal("IsCurrent should be true for the bound session")
	}

	if !manager.Unbind(sess) {
		t.Fatal("Unbind should report the live session was removed")
	}
	if _, ok := manager.Resolve("u1"); ok {
		t.Fatal("Resolve should not find an unbound user")
	}
	if manager.Unbind(sess) {
		t.Fatal("Second Unbind should be a no-op")
	}
}

func TestManager_Bind_SupersedesPriorSession(t *testing.T) {
	manager := NewManager()
	oldConn := &MockConnection{}
	newConn := &MockConnection{}
	oldSess := NewSession("old", "u1", oldConn)
	newSess := NewSession("new", "u1", newConn)

	manager.Bind(oldSess)
	prior := manager.Bind(newSess)

	if prior != oldSess {
		t.Fatal("Bind should return the superseded session")
	}
	if !oldConn.Closed {
		t.Fatal("Superseded connection should be closed")
	}
	if len(oldConn.Sent) != 1 || oldConn.Sent[0].msgID != network.MsgTypeError {
		t.Fatalf("Superseded connection should get exactly one error notice, got %+v", oldConn.Sent)
	}
	var msg network.ErrorMessage
	if err := json.Unmarshal(oldConn.Sent[0].data, &msg); err != nil {
		t.Fatalf("notice payload: %v", err)
	}
	if msg.Message != SupersededNotice {
		t.Errorf("Expected notice %q, got %q", SupersededNotice, msg.Message)
	}

	got, _ := manager.Resolve("u1")
	if got != newSess {
		t.Fatal("Resolve should return only the new session")
	}
	if newConn.Closed || len(newConn.Sent) != 0 {
		t.Fatal("New connection must not be touched by the bind")
	}

	// The stale disconnect of the old connection must not remove the new binding.
	if manager.Unbind(oldSess) {
		t.Fatal("Unbind of a superseded session should be refused")
	}
	if got, _ := manager.Resolve("u1"); got != newSess {
		t.Fatal("New session should still be bound after stale unbind")
	}
}

func TestManager_BindSameSessionTwice(t *testing.T) {
	manager := NewManager()
	conn := &MockConnection{}
	sess := NewSession("s1", "u1", conn)

	manager.Bind(sess)
	if prior := manager.Bind(sess); prior != nil {
		t.Fatal("Rebinding the same session should not supersede itself")
	}
	if conn.Closed {
		t.Fatal("Rebinding the same session should not close it")
	}
}

func TestManager_AllAndCloseAll(t *testing.T) {
	manager := NewManager()
	c1, c2 := &MockConnection{}, &MockConnection{}
	manager.Bind(NewSession("s1", "u1", c1))
	manager.Bind(NewSession("s2", "u2", c2))

	if n := len(manager.All()); n != 2 {
		t.Fatalf("Expected 2 sessions, got %d", n)
	}
	manager.CloseAll()
	if !c1.Closed || !c2.Closed {
		t.Fatal("CloseAll should close every session")
	}
}

func TestSession_Touch(t *testing.T) {
	sess := NewSession("s1", "u1", &MockConnection{})
	before := sess.LastActive()
	sess.Touch()
	if sess.LastActive().Before(before) {
		t.Error("Touch should not move LastActive backwards")
	}
}
