// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"

	"github.com/wfunc/connectfour/logger"
	"github.com/wfunc/connectfour/network"
	"github.com/wfunc/connectfour/session"
)

var (
	ErrUnreachable = errors.New("user has no live connection")
)

// 广播接口
type Broadcaster interface {
	SendToUser(userID string, msgID uint16, data []byte) error
	BroadcastToUsers(userIDs []string, msgID uint16, data []byte)
	BroadcastToAll(msgID uint16, data []byte)
}

// SessionBroadcaster delivers through the live session of each user. Sends
// are best effort: unreachable users and full buffers are skipped.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *SessionBroadcaster) SendToUser(userID string, msgID uint16, data []byte) error {
	s, ok := b.sessionManager.Resolve(userID)
	if !ok {
		return ErrUnreachable
	}
	if err := s.Send(msgID, data); err != nil {
		return fmt.Errorf("send %s to %s: %w", network.MsgName(msgID), userID, err)
	}
	return nil
}

// logSkipped keeps ordinary delivery failures at Debug but surfaces
// oversized payloads, which no recipient can ever receive.
func logSkipped(userID string, msgID uint16, err error) {
	if errors.Is(err, network.ErrPacketTooLarge) {
		logger.Log.Errorw("broadcast payload too large", "user", userID, "msg", network.MsgName(msgID), "error", err)
		return
	}
	logger.Log.Debugw("broadcast skipped", "user", userID, "msg", network.MsgName(msgID), "error", err)
}

func (b *SessionBroadcaster) BroadcastToUsers(userIDs []string, msgID uint16, data []byte) {
	for _, userID := range userIDs {
		if err := b.SendToUser(userID, msgID, data); err != nil {
			logSkipped(userID, msgID, err)
		}
	}
}

func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, data []byte) {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			logSkipped(s.UserID, msgID, err)
		}
	}
}
