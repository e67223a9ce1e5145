// Package board implements the connect-four grid: dropping discs into
// columns and scanning the whole grid for a winner or a draw.
package board

import (
	"encoding/json"
	"errors"
)

const (
	Rows    = 6
	Columns = 7
	// ConnectLength is the run length that wins the game.
	ConnectLength = 4
)

var (
	ErrInvalidColumn = errors.New("invalid column")
	ErrColumnFull    = errors.New("column full")
	ErrEmptyColor    = errors.New("cannot drop an empty disc")
)

// Color is the content of a cell and the side a player plays.
type Color uint8

const (
	Empty Color = iota
	Red
	Yellow
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	default:
		return ""
	}
}

// Opponent returns the other side. Empty has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case Red:
		return Yellow
	case Yellow:
		return Red
	default:
		return Empty
	}
}

// MarshalJSON encodes Empty as null.
func (c Color) MarshalJSON() ([]byte, error) {
	if c == Empty {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch {
	case s == nil || *s == "":
		*c = Empty
	case *s == "red":
		*c = Red
	case *s == "yellow":
		*c = Yellow
	default:
		return errors.New("unknown color " + *s)
	}
	return nil
}

// Result is the outcome of a win check.
type Result uint8

const (
	NoResult Result = iota
	RedWins
	YellowWins
	Draw
)

func (r Result) String() string {
	switch r {
	case RedWins:
		return "red"
	case YellowWins:
		return "yellow"
	case Draw:
		return "draw"
	default:
		return ""
	}
}

// Terminal reports whether the result ends the game.
func (r Result) Terminal() bool { return r != NoResult }

// Color returns the winning color, or Empty for NoResult and Draw.
func (r Result) Color() Color {
	switch r {
	case RedWins:
		return Red
	case YellowWins:
		return Yellow
	default:
		return Empty
	}
}

// WinFor returns the result in which c wins.
func WinFor(c Color) Result {
	switch c {
	case Red:
		return RedWins
	case Yellow:
		return YellowWins
	default:
		return NoResult
	}
}

// MarshalJSON encodes NoResult as null.
func (r Result) MarshalJSON() ([]byte, error) {
	if r == NoResult {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch {
	case s == nil || *s == "":
		*r = NoResult
	case *s == "red":
		*r = RedWins
	case *s == "yellow":
		*r = YellowWins
	case *s == "draw":
		*r = Draw
	default:
		return errors.New("unknown result " + *s)
	}
	return nil
}

// Board is a Rows×Columns grid. Row 0 is the top, so discs settle towards
// row Rows-1.
type Board [Rows][Columns]Color

// Drop places a disc of color c in the lowest empty row of col and returns
// that row. A full or out-of-range column leaves the board untouched.
func (b *Board) Drop(col int, c Color) (int, error) {
	if c == Empty {
		return -1, ErrEmptyColor
	}
	if col < 0 || col >= Columns {
		return -1, ErrInvalidColumn
	}
	for row := Rows - 1; row >= 0; row-- {
		if b[row][col] == Empty {
			b[row][col] = c
			return row, nil
		}
	}
	return -1, ErrColumnFull
}

// Full reports whether every cell is occupied.
func (b *Board) Full() bool {
	for row := range b {
		for col := range b[row] {
			if b[row][col] == Empty {
				return false
			}
		}
	}
	return true
}

// directions walked from every occupied cell: horizontal, vertical and
// both diagonals.
var directions = [4][2]int{
	{0, 1},
	{1, 0},
	{1, 1},
	{1, -1},
}

// Winner scans the whole grid. Any run of ConnectLength same-colored cells
// wins; otherwise a full grid is a draw.
func (b *Board) Winner() Result {
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			cell := b[row][col]
			if cell == Empty {
				continue
			}
			for _, d := range directions {
				if b.runLength(row, col, d[0], d[1]) >= ConnectLength {
					return WinFor(cell)
				}
			}
		}
	}
	if b.Full() {
		return Draw
	}
	return NoResult
}

func (b *Board) runLength(row, col, dr, dc int) int {
	cell := b[row][col]
	count := 1
	r, c := row+dr, col+dc
	for r >= 0 && r < Rows && c >= 0 && c < Columns && b[r][c] == cell {
		count++
		if count == ConnectLength {
			break
		}
		r += dr
		c += dc
	}
	return count
}
