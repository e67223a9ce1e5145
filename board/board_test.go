package board

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parse builds a board from Rows strings of R, Y and '.' (top row first).
func parse(t *testing.T, rows ...string) Board {
	t.Helper()
	require.Len(t, rows, Rows)
	var b Board
	for r, line := range rows {
		require.Len(t, line, Columns)
		for c, ch := range line {
			switch ch {
			case 'R':
				b[r][c] = Red
			case 'Y':
				b[r][c] = Yellow
			}
		}
	}
	return b
}

func TestDrop_SettlesInLowestEmptyRow(t *testing.T) {
	var b Board

	row, err := b.Drop(3, Red)
	require.NoError(t, err)
	assert.Equal(t, Rows-1, row)

	row, err = b.Drop(3, Yellow)
	require.NoError(t, err)
	assert.Equal(t, Rows-2, row)

	assert.Equal(t, Red, b[Rows-1][3])
	assert.Equal(t, Yellow, b[Rows-2][3])
}

func TestDrop_ColumnFull(t *testing.T) {
	var b Board
	for i := 0; i < Rows; i++ {
		_, err := b.Drop(0, Red)
		require.NoError(t, err)
	}
	before := b

	_, err := b.Drop(0, Yellow)
	assert.ErrorIs(t, err, ErrColumnFull)
	assert.Equal(t, before, b)
}

func TestDrop_InvalidInput(t *testing.T) {
	var b Board
	_, err := b.Drop(-1, Red)
	assert.ErrorIs(t, err, ErrInvalidColumn)
	_, err = b.Drop(Columns, Red)
	assert.ErrorIs(t, err, ErrInvalidColumn)
	_, err = b.Drop(0, Empty)
	assert.ErrorIs(t, err, ErrEmptyColor)
	assert.Equal(t, Board{}, b)
}

func TestWinner(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want Result
	}{
		{
			name: "empty board",
			rows: []string{".......", ".......", ".......", ".......", ".......", "......."},
			want: NoResult,
		},
		{
			name: "horizontal red",
			rows: []string{".......", ".......", ".......", ".......", "YYY....", "RRRR..."},
			want: RedWins,
		},
		{
			name: "vertical yellow",
			rows: []string{".......", ".......", "......Y", "......Y", "R.....Y", "RR....Y"},
			want: YellowWins,
		},
		{
			name: "rising diagonal",
			rows: []string{".......", ".......", "...R...", "..RY...", ".RYY...", "RYYR..."},
			want: RedWins,
		},
		{
			name: "falling diagonal",
			rows: []string{".......", ".......", "Y......", "RY.....", "RRY....", "RRRY..."},
			want: YellowWins,
		},
		{
			name: "three in a row is not a win",
			rows: []string{".......", ".......", ".......", ".......", ".......", "RRR.YYY"},
			want: NoResult,
		},
		{
			name: "full board without four is a draw",
			rows: []string{"RRYYRRY", "RRYYRRY", "RRYYRRY", "YYRRYYR", "RRYYRRY", "RRYYRRY"},
			want: Draw,
		},
		{
			name: "full board with four is a win not a draw",
			rows: []string{"RRYYRRY", "RRYYRRY", "RRYYRRY", "RRYYRRY", "YYRRYYR", "RRYYRRY"},
			want: RedWins,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := parse(t, tt.rows...)
			assert.Equal(t, tt.want, b.Winner())
		})
	}
}

func TestResultHelpers(t *testing.T) {
	assert.False(t, NoResult.Terminal())
	assert.True(t, Draw.Terminal())
	assert.Equal(t, Red, RedWins.Color())
	assert.Equal(t, Empty, Draw.Color())
	assert.Equal(t, YellowWins, WinFor(Yellow))
	assert.Equal(t, Yellow, Red.Opponent())
	assert.Equal(t, Empty, Empty.Opponent())
}

func TestJSON(t *testing.T) {
	var b Board
	_, err := b.Drop(0, Red)
	require.NoError(t, err)

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var cells [][]*string
	require.NoError(t, json.Unmarshal(data, &cells))
	require.Len(t, cells, Rows)
	require.NotNil(t, cells[Rows-1][0])
	assert.Equal(t, "red", *cells[Rows-1][0])
	assert.Nil(t, cells[0][0])

	data, err = json.Marshal(NoResult)
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(data))

	var r Result
	require.NoError(t, json.Unmarshal([]byte(`"draw"`), &r))
	assert.Equal(t, Draw, r)

	var c Color
	require.NoError(t, json.Unmarshal([]byte(`null`), &c))
	assert.Equal(t, Empty, c)
}
