// ev3key drives a running panel from the terminal. Each stdin line is one
// command:
//
//	press up|down|left|right     hold a key
//	release up|down|left|right   release it
//	click forward|backward|left|right
//	halt
//	kill
//	speed 40
//
// Activity log entries and state changes from the panel are printed as they
// arrive.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-ev3panel/pkg/protocol"
)

type key struct {
	name string
	code int
}

var keys = map[string]key{
	"up":    {"ArrowUp", 38},
	"down":  {"ArrowDown", 40},
	"left":  {"ArrowLeft", 37},
	"right": {"ArrowRight", 39},
}

func main() {
	host := flag.String("panel", "localhost:8080", "Panel host:port")
	quiet := flag.Bool("quiet", false, "Only print activity log entries")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws/control"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Fatalf("❌ Failed to connect to %s: %v", u.String(), err)
	}
	defer conn.Close()

	fmt.Printf("connected to %s\n", u.String())

	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
				}
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			printMessage(os.Stdout, msg, *quiet)
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			closeConn(conn)
			return
		case line, ok := <-lines:
			if !ok {
				closeConn(conn)
				return
			}
			msgs, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			for _, msg := range msgs {
				data, err := msg.Bytes()
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Fatalf("❌ Send failed: %v", err)
				}
			}
		}
	}
}

func closeConn(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// parseCommand turns one input line into panel messages. Blank lines and
// comments produce none.
func parseCommand(line string) ([]*protocol.Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil, nil
	}

	var (
		msg *protocol.Message
		err error
	)
	switch cmd := strings.ToLower(fields[0]); cmd {
	case "press", "release":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: %s up|down|left|right", cmd)
		}
		k, ok := keys[strings.ToLower(fields[1])]
		if !ok {
			return nil, fmt.Errorf("unknown key %q", fields[1])
		}
		event := "keydown"
		if cmd == "release" {
			event = "keyup"
		}
		msg, err = protocol.NewKeyMessage(event, k.name, k.code)
	case "click":
		if len(fields) != 2 {
			return nil, errors.New("usage: click forward|backward|left|right")
		}
		msg, err = protocol.NewPointerMessage(strings.ToLower(fields[1]))
	case "halt":
		msg, err = protocol.NewHaltMessage()
	case "kill":
		msg, err = protocol.NewKillMessage()
	case "speed":
		if len(fields) != 2 {
			return nil, errors.New("usage: speed 0-100")
		}
		msg, err = protocol.NewSpeedMessage(fields[1])
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
	if err != nil {
		return nil, err
	}
	return []*protocol.Message{msg}, nil
}

func printMessage(w io.Writer, msg *protocol.Message, quiet bool) {
	switch msg.Type {
	case protocol.TypeLog:
		if entry, err := msg.LogData(); err == nil {
			fmt.Fprintln(w, entry.Text())
		}
	case protocol.TypeHistory:
		if h, err := msg.HistoryData(); err == nil {
			for _, entry := range h.Entries {
				fmt.Fprintln(w, entry.Text())
			}
		}
	case protocol.TypeError:
		var e protocol.ErrorData
		if err := msg.ParseData(&e); err == nil {
			fmt.Fprintf(w, "error: %s\n", e.Message)
		}
	case protocol.TypeState:
		if quiet {
			return
		}
		st, err := msg.StateData()
		if err != nil {
			return
		}
		direction := st.Direction
		if st.Stopped || direction == "" {
			direction = "stopped"
		}
		fmt.Fprintf(w, "  [%s speed=%d held=%s]\n", direction, st.Speed, strings.Join(st.Held, ","))
	}
}
