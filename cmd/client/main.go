// Command client is a small terminal chat client, mostly useful for poking
// at a running server during development.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"beam/internal/client"
	"beam/internal/domain"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	name := flag.String("name", "", "full name (signup when set)")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}

	api, err := client.NewAPI(*server)
	if err != nil {
		log.Fatal(err)
	}

	session := client.NewSessionStore(api, *server)
	session.Notify = func(msg string) { fmt.Println("!", msg) }

	ctx := context.Background()
	if *name != "" {
		err = session.Signup(ctx, *name, *email, *password)
	} else {
		err = session.Login(ctx, *email, *password)
	}
	if err != nil {
		os.Exit(1)
	}
	fmt.Printf("Logged in as %s\n", session.User().FullName)

	peers, err := api.Peers(ctx)
	if err != nil {
		log.Fatal(err)
	}
	if len(peers) == 0 {
		fmt.Println("Nobody else is registered yet.")
		return
	}
	for i, p := range peers {
		fmt.Printf("%d: %s <%s>\n", i, p.FullName, p.Email)
	}

	stdin := bufio.NewScanner(os.Stdin)
	fmt.Print("Chat with> ")
	if !stdin.Scan() {
		return
	}
	idx, err := strconv.Atoi(strings.TrimSpace(stdin.Text()))
	if err != nil || idx < 0 || idx >= len(peers) {
		log.Fatal("invalid selection")
	}
	peer := peers[idx]

	chat := client.NewChatStore(api, session)
	chat.OnMessage = func(m domain.Message) {
		printMessage(true, peer.FullName, m.Text, m.ImageURL)
	}
	if err := chat.SelectPeer(ctx, peer.ID); err != nil {
		log.Fatal(err)
	}
	for _, m := range chat.Messages() {
		printMessage(m.SenderID == peer.ID, peer.FullName, m.Text, m.ImageURL)
	}

	fmt.Println("Type messages, ctrl-d to quit.")
	for stdin.Scan() {
		text := strings.TrimSpace(stdin.Text())
		if text == "" {
			continue
		}
		if _, err := chat.Send(ctx, text, ""); err != nil {
			fmt.Println("! send failed:", err)
		}
	}

	session.Logout(ctx)
}

func printMessage(fromPeer bool, peerName string, text, image *string) {
	who := "me"
	if fromPeer {
		who = peerName
	}
	switch {
	case text != nil:
		fmt.Printf("[%s] %s\n", who, *text)
	case image != nil:
		fmt.Printf("[%s] (image) %s\n", who, *image)
	}
}
