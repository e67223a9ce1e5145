package network

// Client → server.
const (
	MsgTypeHeartbeat         = 1
	MsgTypeGetAvailableRooms = 101
	MsgTypeFindMatch         = 102
	MsgTypeCancelMatch       = 103
	MsgTypeCreateRoom        = 104
	MsgTypeJoinRoom          = 105
	MsgTypeLeaveRoom         = 106
	MsgTypeJoinGame          = 201
	MsgTypeMakeMove          = 202
	MsgTypeSurrender         = 203
)

// Server → client.
const (
	MsgTypeAvailableRooms = 301
	MsgTypeMatchFound     = 302
	MsgTypeRoomCreated    = 303
	MsgTypeJoinedRoom     = 304
	MsgTypeGameState      = 401
	MsgTypeGameStart      = 402
	MsgTypeGameOver       = 403
	MsgTypeError          = 500
)

var msgNames = map[uint16]string{
	MsgTypeHeartbeat:         "heartbeat",
	MsgTypeGetAvailableRooms: "get_available_rooms",
	MsgTypeFindMatch:         "find_match",
	MsgTypeCancelMatch:       "cancel_match",
	MsgTypeCreateRoom:        "create_room",
	MsgTypeJoinRoom:          "join_room",
	MsgTypeLeaveRoom:         "leave_room",
	MsgTypeJoinGame:          "join_game",
	MsgTypeMakeMove:          "make_move",
	MsgTypeSurrender:         "surrender",
	MsgTypeAvailableRooms:    "available_rooms",
	MsgTypeMatchFound:        "match_found",
	MsgTypeRoomCreated:       "room_created",
	MsgTypeJoinedRoom:        "joined_room",
	MsgTypeGameState:         "game_state",
	MsgTypeGameStart:         "game_start",
	MsgTypeGameOver:          "game_over",
	MsgTypeError:             "error_message",
}

// MsgName returns the event name for a message id, or "unknown".
func MsgName(msgID uint16) string {
	if name, ok := msgNames[msgID]; ok {
		return name
	}
	return "unknown"
}
