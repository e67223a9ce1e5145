package network

import (
	"encoding/json"

	"github.com/wfunc/connectfour/board"
)

type CreateRoomRequest struct {
	RoomName string `json:"roomName"`
}

// RoomRequest is the payload of join_room, join_game and surrender.
type RoomRequest struct {
	RoomID string `json:"roomId"`
}

// MakeMoveRequest leaves Column nil when the key is missing, so a move
// without a column is never read as column 0.
type MakeMoveRequest struct {
	RoomID string `json:"roomId"`
	Column *int   `json:"column"`
}

type RoomSummary struct {
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName"`
	PlayerCount int    `json:"playerCount"`
}

type RoomInfo struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

type JoinedRoom struct {
	RoomID   string   `json:"roomId"`
	RoomName string   `json:"roomName"`
	Players  []string `json:"players"`
}

type GameState struct {
	Board         board.Board  `json:"board"`
	CurrentPlayer board.Color  `json:"currentPlayer"`
	IsMyTurn      bool         `json:"isMyTurn"`
	Winner        board.Result `json:"winner"`
	Players       []string     `json:"players"`
}

type GameStart struct {
	CurrentPlayer board.Color `json:"currentPlayer"`
}

// GameOver carries a null winnerColor and winnerId for a draw.
type GameOver struct {
	WinnerColor board.Color `json:"winnerColor"`
	WinnerID    *string     `json:"winnerId"`
	Reason      string      `json:"reason"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

// Encode marshals a payload. Every payload type in this package is plain
// data, so a marshal failure is a programming error.
func Encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic("network: encode payload: " + err.Error())
	}
	return data
}
