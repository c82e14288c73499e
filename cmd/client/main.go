// Command client is a terminal chat client for the relay server. It
// resolves the server's bound port, keeps one managed socket open, and
// prints streamed frames as they arrive.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/masaoka108/tour-guide-ai-chatbot/pkg/socket"
)

func main() {
	baseURL := flag.String("server", "http://localhost:5000", "server base URL")
	user := flag.String("user", "", "user key for conversation continuity")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	wsURL, err := socket.ResolveURL(ctx, *baseURL, *user)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	manager := socket.NewManager(wsURL, socket.Options{
		OnGiveUp: func() {
			fmt.Fprintln(os.Stderr, "connection lost and could not be re-established, exiting")
			os.Exit(1)
		},
	})
	defer manager.Close()

	unsubscribe := manager.Subscribe(printFrame)
	defer unsubscribe()

	manager.Connect()

	fmt.Println("connected to", wsURL)
	fmt.Println("type a message and press enter (ctrl-d to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		manager.Send(scanner.Text())
	}
}

func printFrame(msg socket.Message) {
	switch msg.Role {
	case "assistant":
		if msg.ResponseTime > 0 {
			fmt.Printf("\n[assistant, %dms]\n", msg.ResponseTime)
			return
		}
		fmt.Print(msg.Content)
	case "system":
		fmt.Printf("* %s\n", msg.Content)
	case "user":
		fmt.Printf("> %s\n", strings.TrimSpace(msg.Content))
	}
}
