package lobby

import (
	"errors"

	"github.com/wfunc/connectfour/board"
	"github.com/wfunc/connectfour/game"
	"github.com/wfunc/connectfour/matchmaking"
	"github.com/wfunc/connectfour/room"
)

// Texts sent in error_message.
const (
	msgFindWhileInRoom   = "You are already in a room. Please leave the current room before finding a new match."
	msgAlreadySearching  = "You are already searching for a match."
	msgCreateWhileInRoom = "You are already in a room. Please leave the current room before creating a new one."
	msgNameTaken         = "Room name already exists. Please choose a different name."
	msgNameTooLong       = "Room name is too long. Please use at most 64 characters."
	msgRoomNotFound      = "Room does not exist."
	msgRoomFull          = "Room is full."
	msgJoinWhileInRoom   = "You are already in a room. Please leave the current room before joining another."
	msgNotRoomMember     = "You are not in this room."
	msgCannotSeat        = "Room full or you are already in the room."
	msgGameNotFound      = "Game not found."
	msgGameOver          = "Game is already over."
	msgNotPlayer         = "You are not a player in this game."
	msgNotStarted        = "Game has not started yet."
	msgNotYourTurn       = "It's not your turn."
	msgInvalidColumn     = "Invalid column."
	msgColumnFull        = "Column full."
)

// InvalidRequest answers malformed or unknown packets.
const InvalidRequest = "Invalid request."

// ErrStopped is returned to submitters once the loop has exited.
var ErrStopped = errors.New("lobby stopped")

// gameErrorText maps a rejected game action to the text shown to the player.
func gameErrorText(err error) string {
	switch {
	case errors.Is(err, game.ErrGameOver):
		return msgGameOver
	case errors.Is(err, game.ErrNotPlayer):
		return msgNotPlayer
	case errors.Is(err, game.ErrNotStarted):
		return msgNotStarted
	case errors.Is(err, game.ErrNotYourTurn):
		return msgNotYourTurn
	case errors.Is(err, board.ErrInvalidColumn):
		return msgInvalidColumn
	case errors.Is(err, board.ErrColumnFull):
		return msgColumnFull
	default:
		return InvalidRequest
	}
}

func findMatchErrorText(err error) string {
	if errors.Is(err, matchmaking.ErrAlreadyInRoom) {
		return msgFindWhileInRoom
	}
	return msgAlreadySearching
}

func createRoomErrorText(err error) string {
	switch {
	case errors.Is(err, room.ErrNameTaken):
		return msgNameTaken
	case errors.Is(err, room.ErrNameTooLong):
		return msgNameTooLong
	default:
		return msgCreateWhileInRoom
	}
}

func joinRoomErrorText(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return msgRoomNotFound
	case errors.Is(err, room.ErrRoomFull):
		return msgRoomFull
	default:
		return msgJoinWhileInRoom
	}
}
