// Command listen opens a websocket session for each given user id and prints
// every notification they receive. It is a manual testing aid: set user
// locations and interest tags, start listeners, then publish a post and watch
// who gets notified.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr  = flag.String("addr", "ws://localhost:3000/ws", "websocket endpoint")
		users = flag.String("users", "", "comma-separated user ids to connect as")
	)
	flag.Parse()

	ids := strings.Split(*users, ",")
	if *users == "" || len(ids) == 0 {
		return fmt.Errorf("at least one user id is required, e.g. -users alice,bob")
	}

	for _, userID := range ids {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		if err := listen(*addr, userID); err != nil {
			return fmt.Errorf("connect as %s: %w", userID, err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

func listen(addr, userID string) error {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return err
	}

	join := map[string]string{"action": "join", "userId": userID}
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return fmt.Errorf("send join: %w", err)
	}
	log.Printf("[%s] connected and joined", userID)

	go func() {
		defer conn.Close()
		for {
			var frame struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := conn.ReadJSON(&frame); err != nil {
				log.Printf("[%s] disconnected: %v", userID, err)
				return
			}
			log.Printf("[%s] %s: %s", userID, frame.Event, frame.Data)
		}
	}()

	return nil
}
