// Package game holds the state of one connect-four match: seating in join
// order, turn order, moves and terminal resolution. A Game is owned by the
// lobby event loop and is not safe for concurrent use.
package game

import (
	"errors"
	"fmt"

	"github.com/wfunc/connectfour/board"
	"github.com/wfunc/connectfour/network"
	"github.com/wfunc/connectfour/state"
)

// Phases.
const (
	PhaseEmpty    = "empty"
	PhaseAwaiting = "awaiting_second_player"
	PhasePlaying  = "in_progress"
	PhaseFinished = "finished"
)

// Reasons a game ends.
const (
	ReasonWin                  = "win"
	ReasonDraw                 = "draw"
	ReasonSurrender            = "surrender"
	ReasonOpponentDisconnected = "opponent_disconnected"
)

// Seats is the number of players in a match.
const Seats = 2

var (
	ErrAlreadySeated = errors.New("already seated")
	ErrGameFull      = errors.New("game is full")
	ErrNotPlayer     = errors.New("not a player in this game")
	ErrNotStarted    = errors.New("game has not started")
	ErrGameOver      = errors.New("game is already over")
	ErrNotYourTurn   = errors.New("not your turn")
)

type phase struct {
	state.BaseState
	enter func()
}

func (p *phase) OnEnter() {
	if p.enter != nil {
		p.enter()
	}
}

// Game is one match. Players[0] plays red and Players[1] yellow; the slice
// is never reordered or trimmed once the game starts.
type Game struct {
	RoomID   string
	Board    board.Board
	Players  []string
	Current  board.Color
	Winner   board.Result
	WinnerID string
	Reason   string
	Moves    int

	machine  *state.BaseStateMachine
	awaiting *phase
	playing  *phase
	finished *phase
}

func New(roomID string) *Game {
	g := &Game{RoomID: roomID, Current: board.Red}

	empty := &phase{BaseState: state.BaseState{ID: PhaseEmpty}}
	g.awaiting = &phase{BaseState: state.BaseState{ID: PhaseAwaiting}}
	g.playing = &phase{BaseState: state.BaseState{ID: PhasePlaying}, enter: g.start}
	g.finished = &phase{BaseState: state.BaseState{ID: PhaseFinished}}

	g.machine = state.NewBaseStateMachine(empty)
	g.mustAdd(empty, g.awaiting, func() bool { return len(g.Players) == 1 })
	g.mustAdd(g.awaiting, g.playing, func() bool { return len(g.Players) == Seats })
	g.mustAdd(g.awaiting, g.finished, nil)
	g.mustAdd(g.playing, g.finished, func() bool { return g.Winner.Terminal() || g.Reason != "" })
	return g
}

func (g *Game) mustAdd(from, to state.State, condition func() bool) {
	if err := g.machine.AddTransition(from, to, condition); err != nil {
		panic(fmt.Sprintf("game: register transition: %v", err))
	}
}

func (g *Game) transition(to state.State) {
	if err := g.machine.ChangeState(to); err != nil {
		panic(fmt.Sprintf("game %s: %v", g.RoomID, err))
	}
}

func (g *Game) start() {
	g.Board = board.Board{}
	g.Current = board.Red
	g.Winner = board.NoResult
	g.WinnerID = ""
	g.Reason = ""
	g.Moves = 0
}

func (g *Game) Phase() string {
	return g.machine.GetCurrentState().GetID()
}

func (g *Game) Started() bool {
	id := g.Phase()
	return id == PhasePlaying || id == PhaseFinished
}

func (g *Game) Finished() bool {
	return g.Phase() == PhaseFinished
}

// ColorOf returns the color implied by the user's seat.
func (g *Game) ColorOf(userID string) (board.Color, bool) {
	for i, id := range g.Players {
		if id == userID {
			if i == 0 {
				return board.Red, true
			}
			return board.Yellow, true
		}
	}
	return board.Empty, false
}

func (g *Game) IsSeated(userID string) bool {
	_, ok := g.ColorOf(userID)
	return ok
}

// Opponent returns the other seated player, if any.
func (g *Game) Opponent(userID string) (string, bool) {
	if !g.IsSeated(userID) {
		return "", false
	}
	for _, id := range g.Players {
		if id != userID {
			return id, true
		}
	}
	return "", false
}

// IsMyTurn is false for everyone once the game is over.
func (g *Game) IsMyTurn(userID string) bool {
	if g.Phase() != PhasePlaying {
		return false
	}
	color, ok := g.ColorOf(userID)
	return ok && color == g.Current
}

// Seat adds a player in join order and starts the game on the second seat.
func (g *Game) Seat(userID string) (started bool, err error) {
	switch {
	case g.Finished():
		return false, ErrGameOver
	case g.IsSeated(userID):
		return false, ErrAlreadySeated
	case len(g.Players) >= Seats:
		return false, ErrGameFull
	}

	g.Players = append(g.Players, userID)
	if len(g.Players) == 1 {
		g.transition(g.awaiting)
		return false, nil
	}
	g.transition(g.playing)
	return true, nil
}

// MoveResult describes an accepted drop.
type MoveResult struct {
	Row    int
	Column int
	Color  board.Color
	// Resolution is set when the move ended the game.
	Resolution *Resolution
}

// Move drops the mover's disc into column. Rejected moves leave the game
// unchanged.
func (g *Game) Move(userID string, column int) (MoveResult, error) {
	if g.Finished() {
		return MoveResult{}, ErrGameOver
	}
	color, seated := g.ColorOf(userID)
	if !seated {
		return MoveResult{}, ErrNotPlayer
	}
	if g.Phase() != PhasePlaying {
		return MoveResult{}, ErrNotStarted
	}
	if color != g.Current {
		return MoveResult{}, ErrNotYourTurn
	}

	row, err := g.Board.Drop(column, color)
	if err != nil {
		return MoveResult{}, err
	}
	g.Moves++
	res := MoveResult{Row: row, Column: column, Color: color}

	switch result := g.Board.Winner(); result {
	case board.NoResult:
		g.Current = g.Current.Opponent()
	case board.Draw:
		r := g.finish(board.Draw, "", ReasonDraw)
		res.Resolution = &r
	default:
		r := g.finish(result, g.playerOf(result.Color()), ReasonWin)
		res.Resolution = &r
	}
	return res, nil
}

// Resolution is how a game ended.
type Resolution struct {
	Winner   board.Result
	WinnerID string
	Reason   string
	// Announce is false for silent teardowns that carry no game_over.
	Announce bool
	// Notify lists who receives game_over.
	Notify []string
}

// Surrender ends the game in favour of the other seated player. A player
// waiting alone gets a silent teardown with no winner.
func (g *Game) Surrender(userID string) (Resolution, error) {
	if g.Finished() {
		return Resolution{}, ErrGameOver
	}
	if !g.IsSeated(userID) {
		return Resolution{}, ErrNotPlayer
	}

	opponent, ok := g.Opponent(userID)
	if !ok {
		g.transition(g.finished)
		return Resolution{}, nil
	}
	color, _ := g.ColorOf(opponent)
	return g.finish(board.WinFor(color), opponent, ReasonSurrender), nil
}

// Leave resolves a seated player's disconnect. An unfinished started game
// goes to the remaining opponent; an already finished one is only cleaned
// up, without a second game_over.
func (g *Game) Leave(userID string) (Resolution, error) {
	if !g.IsSeated(userID) {
		return Resolution{}, ErrNotPlayer
	}

	switch g.Phase() {
	case PhaseFinished:
		return Resolution{}, nil
	case PhasePlaying:
		opponent, _ := g.Opponent(userID)
		color, _ := g.ColorOf(opponent)
		r := g.finish(board.WinFor(color), opponent, ReasonOpponentDisconnected)
		r.Notify = []string{opponent}
		return r, nil
	default:
		g.transition(g.finished)
		return Resolution{}, nil
	}
}

func (g *Game) finish(winner board.Result, winnerID, reason string) Resolution {
	g.Winner = winner
	g.WinnerID = winnerID
	g.Reason = reason
	g.transition(g.finished)
	return Resolution{
		Winner:   winner,
		WinnerID: winnerID,
		Reason:   reason,
		Announce: true,
		Notify:   append([]string(nil), g.Players...),
	}
}

func (g *Game) playerOf(c board.Color) string {
	switch {
	case c == board.Red && len(g.Players) > 0:
		return g.Players[0]
	case c == board.Yellow && len(g.Players) > 1:
		return g.Players[1]
	}
	return ""
}

// StateFor is the game_state payload as seen by userID.
func (g *Game) StateFor(userID string) network.GameState {
	return network.GameState{
		Board:         g.Board,
		CurrentPlayer: g.Current,
		IsMyTurn:      g.IsMyTurn(userID),
		Winner:        g.Winner,
		Players:       append([]string(nil), g.Players...),
	}
}

// GameOver is the game_over payload for a resolution.
func (r Resolution) GameOver() network.GameOver {
	msg := network.GameOver{
		WinnerColor: r.Winner.Color(),
		Reason:      r.Reason,
	}
	if r.WinnerID != "" {
		id := r.WinnerID
		msg.WinnerID = &id
	}
	return msg
}
