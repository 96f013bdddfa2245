package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"chatwave/internal/common"
	"chatwave/internal/config"
	"chatwave/internal/gateway"
	"chatwave/internal/model"
	"chatwave/internal/realtime"
	"chatwave/internal/session"

	"github.com/c-bata/go-prompt"
	"github.com/joho/godotenv"
)

// app holds the CLI state: the gateway, the live session after login and a
// handle -> user cache so commands can take handles instead of raw ids.
type app struct {
	cfg     *config.Config
	gw      gateway.Gateway
	session *session.Session
	users   map[string]*model.User
}

func newApp() *app {
	cfg := config.Load()
	return &app{
		cfg:   cfg,
		gw:    gateway.NewGateway(cfg.Client.BaseURL),
		users: make(map[string]*model.User),
	}
}

func (a *app) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.Client.RequestTimeout)
}

func (a *app) requireLogin() bool {
	if a.session == nil {
		fmt.Println("Login first: login <handle> <password>")
		return false
	}
	return true
}

func (a *app) resolveUser(handle string) (*model.User, error) {
	if u, ok := a.users[handle]; ok {
		return u, nil
	}
	ctx, cancel := a.ctx()
	defer cancel()
	u, err := a.gw.UserByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	a.users[handle] = u
	return u, nil
}

func (a *app) startSession(token string, user *model.User) error {
	claims, err := common.ParseIdentity(token)
	if err != nil {
		return err
	}

	s := session.New(a.gw, a.cfg, claims, token, user)
	s.Chat.OnPeerDeletion(func(del realtime.Deletion) {
		fmt.Printf("\n[notice] %s deleted a message from your conversation\n", del.DeletedBy)
	})
	if err := s.Connect(context.Background()); err != nil {
		return err
	}

	a.session = s
	a.users[user.Handle] = user
	fmt.Printf("Logged in as %s\n", user.Handle)
	return nil
}

func (a *app) register(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: register <handle> <password> [email]")
		return
	}
	email := ""
	if len(args) > 2 {
		email = args[2]
	}

	ctx, cancel := a.ctx()
	defer cancel()
	token, user, err := a.gw.Register(ctx, args[0], email, args[1])
	if err != nil {
		fmt.Println("Registration failed:", err)
		return
	}
	if err := a.startSession(token, user); err != nil {
		fmt.Println("Session setup failed:", err)
	}
}

func (a *app) login(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: login <handle> <password>")
		return
	}

	ctx, cancel := a.ctx()
	defer cancel()
	token, user, err := a.gw.Login(ctx, args[0], args[1])
	if err != nil {
		fmt.Println("Login failed:", err)
		return
	}
	if err := a.startSession(token, user); err != nil {
		fmt.Println("Session setup failed:", err)
	}
}

func (a *app) open(args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) != 1 {
		fmt.Println("Usage: open <handle>")
		return
	}

	peer, err := a.resolveUser(args[0])
	if err != nil {
		fmt.Println("Lookup failed:", err)
		return
	}

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.session.SelectPeer(ctx, peer.ID); err != nil {
		fmt.Println("Could not load conversation:", err)
		return
	}
	fmt.Printf("Conversation with %s:\n", peer.Handle)
	a.printMessages()
}

func (a *app) printMessages() {
	msgs := a.session.Chat.SortedByTime()
	if len(msgs) == 0 {
		fmt.Println("  (no messages)")
		return
	}
	for _, m := range msgs {
		who := "them"
		if m.SenderID == a.session.Identity.UserID {
			who = "you"
		}
		line := m.Text
		if m.Image != "" {
			line = strings.TrimSpace(line + " [image: " + m.Image + "]")
		}
		fmt.Printf("  %s  %-4s  %s  (%s)\n", m.CreatedAt.Format("15:04:05"), who, line, m.ID)
	}
	if peer := a.session.Chat.SelectedPeer(); peer != "" && a.session.Indicator.IsTyping(peer) {
		fmt.Println("  ... peer is typing")
	}
}

func (a *app) send(args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) == 0 {
		fmt.Println("Usage: send <text>")
		return
	}

	ctx, cancel := a.ctx()
	defer cancel()
	msg, err := a.session.Chat.SendMessage(ctx, session.SendInput{Text: strings.Join(args, " ")})
	a.session.Notifier.HandleStop()
	if err != nil {
		fmt.Println("Send failed:", err)
		return
	}
	fmt.Printf("Sent %s\n", msg.ID)
}

func (a *app) del(args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) != 1 {
		fmt.Println("Usage: delete <message-id>")
		return
	}

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.session.Chat.DeleteForBoth(ctx, args[0]); err != nil {
		fmt.Println("Delete failed:", err)
		return
	}
	fmt.Println("Deleted for both sides")
}

func (a *app) forward(args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) < 2 {
		fmt.Println("Usage: forward <message-id> <handle> [handle...]")
		return
	}

	var source *model.Message
	for _, m := range a.session.Chat.Messages() {
		if m.ID == args[0] {
			source = m
			break
		}
	}
	if source == nil {
		fmt.Println("Message not found in the open conversation")
		return
	}

	var recipients []string
	for _, handle := range args[1:] {
		u, err := a.resolveUser(handle)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", handle, err)
			continue
		}
		recipients = append(recipients, u.ID)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	result, err := a.session.Chat.ForwardMessage(ctx, source, recipients)
	if err != nil {
		fmt.Println("Forward failed:", err)
		return
	}
	fmt.Printf("Forwarded to %d recipient(s), %d failed\n", result.Succeeded, result.Failed)
}

func (a *app) translate(args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) != 2 {
		fmt.Println("Usage: translate <message-id> <language-code>")
		return
	}

	var source *model.Message
	for _, m := range a.session.Chat.Messages() {
		if m.ID == args[0] {
			source = m
			break
		}
	}
	if source == nil {
		fmt.Println("Message not found in the open conversation")
		return
	}

	ctx, cancel := a.ctx()
	defer cancel()
	result, err := a.session.Chat.TranslateMessage(ctx, source.ID, source.Text, args[1])
	if err != nil {
		fmt.Println("Translate failed:", err)
		return
	}
	fmt.Printf("[%s -> %s] %s\n", result.SourceLanguage, result.TargetLanguage, result.TranslatedText)
}

func (a *app) follow(args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) != 1 {
		fmt.Println("Usage: follow <handle>")
		return
	}

	target, err := a.resolveUser(args[0])
	if err != nil {
		fmt.Println("Lookup failed:", err)
		return
	}

	ctx, cancel := a.ctx()
	defer cancel()
	result, err := a.session.Follow.ToggleFollow(ctx, target.ID)
	if err != nil {
		fmt.Println("Follow toggle failed:", err)
		return
	}
	fmt.Printf("You %s %s\n", result.Action, target.Handle)
}

// typing forwards a compose signal for the open conversation. Line input
// hides individual keystrokes from the executor, so composing is signalled
// explicitly; the notifier's idle window clears it, send clears it sooner.
func (a *app) typing() {
	if !a.requireLogin() {
		return
	}
	peer := a.session.Chat.SelectedPeer()
	if peer == "" {
		fmt.Println("No open conversation. Use: open <handle>")
		return
	}
	a.session.Notifier.HandleTyping(peer)
}

func (a *app) online() {
	if !a.requireLogin() {
		return
	}
	roster := a.session.Presence.Online()
	if len(roster) == 0 {
		fmt.Println("Nobody online")
		return
	}
	for _, userID := range roster {
		marker := ""
		if userID == a.session.Identity.UserID {
			marker = " (you)"
		}
		fmt.Printf("  %s%s\n", userID, marker)
	}
}

func (a *app) history() {
	if !a.requireLogin() {
		return
	}
	if a.session.Chat.SelectedPeer() == "" {
		fmt.Println("No open conversation. Use: open <handle>")
		return
	}

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.session.Chat.FetchMessages(ctx); err != nil {
		fmt.Println("Refresh failed:", err)
		return
	}
	a.printMessages()
}

func (a *app) logout() {
	if a.session == nil {
		return
	}
	a.session.Close()
	a.session = nil
	fmt.Println("Logged out")
}

func printHelp() {
	fmt.Println("\n=== ChatWave CLI ===")
	fmt.Printf("%-34s %s\n", "register <handle> <password>", "Create an account and connect")
	fmt.Printf("%-34s %s\n", "login <handle> <password>", "Authenticate and connect")
	fmt.Printf("%-34s %s\n", "open <handle>", "Open a conversation")
	fmt.Printf("%-34s %s\n", "send <text>", "Send a message in the open conversation")
	fmt.Printf("%-34s %s\n", "delete <message-id>", "Delete a message for both sides")
	fmt.Printf("%-34s %s\n", "forward <message-id> <handle...>", "Forward a message to other users")
	fmt.Printf("%-34s %s\n", "translate <message-id> <lang>", "Translate a message")
	fmt.Printf("%-34s %s\n", "follow <handle>", "Follow or unfollow a user")
	fmt.Printf("%-34s %s\n", "typing", "Signal composing in the open conversation")
	fmt.Printf("%-34s %s\n", "online", "List online users")
	fmt.Printf("%-34s %s\n", "history", "Reload the open conversation")
	fmt.Printf("%-34s %s\n", "logout", "Close the session")
	fmt.Printf("%-34s %s\n", "exit", "Quit")
}

func (a *app) executor(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	args := strings.Fields(input)
	cmd := strings.ToLower(args[0])
	args = args[1:]

	switch cmd {
	case "register":
		a.register(args)
	case "login":
		a.login(args)
	case "open":
		a.open(args)
	case "send":
		a.send(args)
	case "delete":
		a.del(args)
	case "forward":
		a.forward(args)
	case "translate":
		a.translate(args)
	case "follow":
		a.follow(args)
	case "typing":
		a.typing()
	case "online":
		a.online()
	case "history", "messages":
		a.history()
	case "logout":
		a.logout()
	case "help":
		printHelp()
	case "exit", "quit":
		a.logout()
		os.Exit(0)
	default:
		fmt.Println("Unknown command. Type 'help' for a list of commands.")
	}
}

func completer(d prompt.Document) []prompt.Suggest {
	suggestions := []prompt.Suggest{
		{Text: "login", Description: "Authenticate and connect"},
		{Text: "register", Description: "Create an account"},
		{Text: "open", Description: "Open a conversation"},
		{Text: "send", Description: "Send a message"},
		{Text: "delete", Description: "Delete a message for both sides"},
		{Text: "forward", Description: "Forward a message"},
		{Text: "translate", Description: "Translate a message"},
		{Text: "follow", Description: "Follow or unfollow a user"},
		{Text: "typing", Description: "Signal composing in the open conversation"},
		{Text: "online", Description: "List online users"},
		{Text: "history", Description: "Reload the open conversation"},
		{Text: "logout", Description: "Close the session"},
		{Text: "help", Description: "Show available commands"},
		{Text: "exit", Description: "Quit"},
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	fmt.Println("Welcome to ChatWave")
	fmt.Println("Type 'help' to see available commands")

	a := newApp()
	p := prompt.New(
		a.executor,
		completer,
		prompt.OptionPrefix("> "),
		prompt.OptionTitle("chatwave"),
	)
	p.Run()
}
