package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"

	"github.com/strangeindustries/scrumpoker/room"
)

// frame mirrors the server's wire envelope.
type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// send formats and sends an event to the WebSocket server.
func send(c *websocket.Conn, msgType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(frame{Type: msgType, Payload: data})
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, msg)
}

// printReveal renders a revealed round as a table sorted by vote.
func printReveal(payload json.RawMessage) {
	var revealed room.VotesRevealed
	if err := json.Unmarshal(payload, &revealed); err != nil {
		log.Printf("Bad votes-revealed payload: %v", err)
		return
	}

	votes := make([]room.NamedVote, 0, len(revealed.Votes))
	for _, v := range revealed.Votes {
		votes = append(votes, v)
	}
	slices.SortFunc(votes, func(a, b room.NamedVote) int {
		return room.CompareVotes(a.Vote, b.Vote)
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Vote"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, v := range votes {
		table.Append([]string{v.Name, string(v.Vote)})
	}
	table.Render()

	majority := make([]string, 0, len(revealed.Majority))
	for _, v := range revealed.Majority {
		majority = append(majority, string(v))
	}
	fmt.Println(color.New(color.FgGreen, color.OpBold).Render("Majority: " + strings.Join(majority, ", ")))
}

func main() {
	host := pflag.String("host", "localhost:3000", "server host:port")
	roomID := pflag.String("room", "demo", "room to join")
	name := pflag.String("name", "", "display name (generated when empty)")
	pflag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			var f frame
			if err := json.Unmarshal(message, &f); err != nil {
				log.Printf("Received invalid frame: %s", string(message))
				continue
			}
			log.Printf("<- RECV %s: %s", color.New(color.FgCyan).Render(f.Type), string(f.Payload))
			if f.Type == room.EventVotesRevealed {
				printReveal(f.Payload)
			}
		}
	}()

	log.Printf("Joining room %s...", *roomID)
	if err := send(c, "join-room", map[string]string{"roomId": *roomID, "name": *name}); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Commands: vote <value>, name <new name>, sm, new")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text := <-lines:
			cmd, arg, _ := strings.Cut(text, " ")
			var err error
			switch cmd {
			case "vote":
				err = send(c, "cast-vote", map[string]string{"roomId": *roomID, "vote": arg})
			case "name":
				err = send(c, "update-name", map[string]string{"roomId": *roomID, "newName": arg})
			case "sm":
				err = send(c, "toggle-scrum-master", map[string]string{"roomId": *roomID})
			case "new":
				err = send(c, "start-new-round", map[string]string{"roomId": *roomID})
			default:
				log.Printf("Unknown command %q", cmd)
				continue
			}
			if err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT %s", cmd)
		}
	}
}
