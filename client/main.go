// Command client is a terminal client for manual play against the server.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/connectfour/board"
	"github.com/wfunc/connectfour/logger"
	"github.com/wfunc/connectfour/network"
)

const usage = `commands:
  rooms                 list open rooms
  find | cancel         enter or leave matchmaking
  create [name]         create a room
  join <roomId>         join a room
  leave                 leave the current room
  play [roomId]         take a seat in the room's game
  move <column>         drop a disc (0-6)
  surrender             give up the current game
  quit`

var errUsage = errors.New("unknown command")

// tracker remembers the room the server last put us in, so game commands
// can omit the id.
type tracker struct {
	mutex sync.Mutex
	room  string
}

func (t *tracker) set(roomID string) {
	t.mutex.Lock()
	t.room = roomID
	t.mutex.Unlock()
}

func (t *tracker) get() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.room
}

// parseCommand turns one input line into a packet.
func parseCommand(line, currentRoom string) (uint16, any, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, nil, errUsage
	}
	arg := func(i int) string {
		if len(fields) > i {
			return fields[i]
		}
		return currentRoom
	}

	switch fields[0] {
	case "rooms":
		return network.MsgTypeGetAvailableRooms, nil, nil
	case "find":
		return network.MsgTypeFindMatch, nil, nil
	case "cancel":
		return network.MsgTypeCancelMatch, nil, nil
	case "create":
		name := strings.TrimSpace(strings.TrimPrefix(line, "create"))
		return network.MsgTypeCreateRoom, network.CreateRoomRequest{RoomName: name}, nil
	case "join":
		if len(fields) < 2 {
			return 0, nil, errors.New("join needs a room id")
		}
		return network.MsgTypeJoinRoom, network.RoomRequest{RoomID: fields[1]}, nil
	case "leave":
		return network.MsgTypeLeaveRoom, nil, nil
	case "play":
		return network.MsgTypeJoinGame, network.RoomRequest{RoomID: arg(1)}, nil
	case "move":
		if len(fields) < 2 {
			return 0, nil, errors.New("move needs a column")
		}
		column, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, nil, fmt.Errorf("bad column %q", fields[1])
		}
		return network.MsgTypeMakeMove, network.MakeMoveRequest{RoomID: arg(2), Column: &column}, nil
	case "surrender":
		return network.MsgTypeSurrender, network.RoomRequest{RoomID: arg(1)}, nil
	case "ping":
		return network.MsgTypeHeartbeat, nil, nil
	}
	return 0, nil, errUsage
}

func renderBoard(b board.Board) string {
	var sb strings.Builder
	for c := 0; c < board.Columns; c++ {
		fmt.Fprintf(&sb, " %d", c)
	}
	sb.WriteString("\n")
	for _, row := range b {
		for _, cell := range row {
			switch cell {
			case board.Red:
				sb.WriteString(" R")
			case board.Yellow:
				sb.WriteString(" Y")
			default:
				sb.WriteString(" .")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func send(c *websocket.Conn, msgID uint16, payload any) error {
	var data []byte
	if payload != nil {
		data = network.Encode(payload)
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func display(p *network.Packet, t *tracker) {
	switch p.MsgID {
	case network.MsgTypeMatchFound, network.MsgTypeRoomCreated, network.MsgTypeJoinedRoom:
		var info network.RoomInfo
		if err := json.Unmarshal(p.Data, &info); err == nil {
			t.set(info.RoomID)
		}
	case network.MsgTypeGameState:
		var state network.GameState
		if err := json.Unmarshal(p.Data, &state); err == nil {
			fmt.Print(renderBoard(state.Board))
			fmt.Printf("turn: %s  yours: %v\n", state.CurrentPlayer, state.IsMyTurn)
			return
		}
	case network.MsgTypeGameOver:
		t.set("")
	}
	fmt.Printf("<- %s %s\n", network.MsgName(p.MsgID), p.Data)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	path := flag.String("path", "/ws", "websocket path")
	token := flag.String("token", os.Getenv("CONNECTFOUR_TOKEN"), "JWT access token")
	flag.Parse()

	if err := logger.Init("info", true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: *path, RawQuery: url.Values{"token": {*token}}.Encode()}
	logger.Log.Infof("Connecting to %s%s", *addr, *path)

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			logger.Log.Fatalf("Dial failed: %v (HTTP %d)", err, resp.StatusCode)
		}
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	t := &tracker{}
	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				logger.Log.Infof("Read error: %v", err)
				return
			}
			p, err := network.DecodePacket(message)
			if err != nil {
				logger.Log.Warnf("Received invalid packet of size %d", len(message))
				continue
			}
			display(p, t)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println(usage)
	for {
		select {
		case <-done:
			return
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "quit" {
				closeGracefully(c, done)
				return
			}
			msgID, payload, err := parseCommand(line, t.get())
			if err != nil {
				fmt.Println(err)
				fmt.Println(usage)
				continue
			}
			if err := send(c, msgID, payload); err != nil {
				logger.Log.Errorf("Write error: %v", err)
				return
			}
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			closeGracefully(c, done)
			return
		}
	}
}

func closeGracefully(c *websocket.Conn, done <-chan struct{}) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		logger.Log.Infof("Write close error: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
