// ChatWave CLI - command line client for the ChatWave chat server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/clients/go/chatwave"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHATWAVE_URL")
	token := os.Getenv("CHATWAVE_TOKEN")
	client := chatwave.NewClient(baseURL, token)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "stats":
		resp, err := client.Stats()
		exitOnError(err)
		printJSON(resp)

	case "register":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatwave register <username> [email]")
			os.Exit(1)
		}
		email := ""
		if len(os.Args) > 3 {
			email = os.Args[3]
		}
		resp, err := client.Register(os.Args[2], email)
		exitOnError(err)
		fmt.Printf("Registered %s\n", resp.ID)
		fmt.Printf("Token (save it, it is shown once): %s\n", resp.Token)

	case "conversations":
		convs, err := client.ListConversations(50, 0)
		exitOnError(err)
		for _, conv := range convs {
			name := conv.Name
			if name == "" {
				name = "(direct)"
			}
			fmt.Printf("  %s  %s  unread=%d\n", conv.ID, name, conv.UnreadCount)
		}

	case "create":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatwave create <participantID> [participantID...]")
			os.Exit(1)
		}
		participants := os.Args[2:]
		isGroup := len(participants) > 1
		name := ""
		if isGroup {
			name = "group chat"
		}
		conv, err := client.CreateConversation(participants, isGroup, name)
		exitOnError(err)
		printJSON(conv)

	case "messages":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatwave messages <conversationID> [limit]")
			os.Exit(1)
		}
		limit := 20
		if len(os.Args) > 3 {
			limit, _ = strconv.Atoi(os.Args[3])
		}
		resp, err := client.GetMessages(os.Args[2], limit, 0)
		exitOnError(err)
		for _, msg := range resp.Messages {
			ts := time.UnixMilli(msg.Timestamp).Format("2006-01-02 15:04:05")
			body := msg.Content
			if msg.Deleted {
				body = "(deleted)"
			}
			from := msg.SenderID
			if len(from) > 8 {
				from = from[:8]
			}
			fmt.Printf("[%s] %s: %s\n", ts, from, body)
		}

	case "presence":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatwave presence <userID>")
			os.Exit(1)
		}
		resp, err := client.Presence(os.Args[2])
		exitOnError(err)
		printJSON(resp)

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: chatwave send <conversationID> <text>")
			os.Exit(1)
		}
		convID := os.Args[2]
		conn, err := client.Connect(context.Background())
		exitOnError(err)
		defer conn.Close()
		exitOnError(conn.JoinRoom(convID))
		awaitEvent(conn, "room:joined")
		exitOnError(conn.SendMessage(convID, os.Args[3], ""))
		ev := awaitEvent(conn, "message:receive", "error")
		if ev.Type == "error" {
			fmt.Fprintf(os.Stderr, "rejected: %s\n", string(ev.Payload))
			os.Exit(1)
		}
		fmt.Println("delivered")

	case "watch":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatwave watch <conversationID>")
			os.Exit(1)
		}
		conn, err := client.Connect(context.Background())
		exitOnError(err)
		defer conn.Close()
		exitOnError(conn.JoinRoom(os.Args[2]))
		for {
			ev, err := conn.Next()
			exitOnError(err)
			fmt.Printf("%s %s\n", ev.Type, string(ev.Payload))
		}

	default:
		usage()
		os.Exit(1)
	}
}

// awaitEvent reads frames until one of the wanted types arrives.
func awaitEvent(conn *chatwave.Conn, types ...string) *chatwave.Event {
	for {
		ev, err := conn.Next()
		exitOnError(err)
		for _, t := range types {
			if ev.Type == t {
				return ev
			}
		}
	}
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `ChatWave CLI

Usage: chatwave <command> [args]

Commands:
  health                          server health report
  stats                           live connection counters
  register <username> [email]     create an account, print its token
  conversations                   list your conversations
  create <participantID>...       start a direct or group conversation
  messages <conversationID>       recent message history
  presence <userID>               online status for a user
  send <conversationID> <text>    send one message over the websocket
  watch <conversationID>          stream events for a conversation

Environment:
  CHATWAVE_URL     server base URL (default http://localhost:8080)
  CHATWAVE_TOKEN   bearer token from register`)
}
