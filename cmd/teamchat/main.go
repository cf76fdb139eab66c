// Command teamchat is a terminal participant for a team room.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"hackmate/backend/internal/chatclient"
	"hackmate/backend/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	userID    string
	userName  string
	teamID    string
	token     string
	refetch   bool
	logLevel  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "teamchat",
	Short: "Chat in a hackmate team room from the terminal",
	Long: `teamchat connects to the relay, joins a team room and prints its messages.

Every line you type is sent to the room. Commands:
  /team <teamId>   switch to another room
  /retry <id>      resend a failed message
  /quit            exit

Examples:
  teamchat --user u1 --name Ana --team team-1
  teamchat --server https://hackmate.example.com --token $TOKEN --team team-1`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runChat,
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "hackmate server URL")
	rootCmd.Flags().StringVar(&userID, "user", "", "participant id (random if empty)")
	rootCmd.Flags().StringVar(&userName, "name", "", "display name")
	rootCmd.Flags().StringVar(&teamID, "team", "", "team room to join")
	rootCmd.Flags().StringVar(&token, "token", "", "bearer token; its subject is used as the participant id")
	rootCmd.Flags().BoolVar(&refetch, "refetch", false, "reload room history after every reconnect")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level")
}

func runChat(cmd *cobra.Command, _ []string) error {
	log, err := logging.New(logLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if token != "" {
		// The relay takes identity from the token, so messages must carry the same sender.
		sub, name, err := chatclient.TokenIdentity(token)
		if err != nil {
			return err
		}
		if userID != "" && userID != sub {
			return fmt.Errorf("--user %q does not match the token subject %q", userID, sub)
		}
		userID = sub
		if userName == "" {
			userName = name
		}
	}
	if userID == "" {
		userID = "cli-" + uuid.NewString()[:8]
	}
	wsURL, err := chatclient.RelayURL(serverURL, userID, userName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := &printer{w: cmd.OutOrStdout(), seen: make(map[string]chatclient.DeliveryState)}
	var session *chatclient.Session
	session = chatclient.NewSession(userID, userName, nil, chatclient.NewHTTPSnapshot(serverURL),
		chatclient.WithRefetchOnReconnect(refetch),
		chatclient.WithLogger(log),
		chatclient.WithOnChange(func() { out.render(session) }),
	)

	transport := chatclient.NewWSTransport(wsURL, session, log)
	if token != "" {
		transport.Header = map[string][]string{"Authorization": {"Bearer " + token}}
	}
	session.SetTransport(transport)

	done := make(chan error, 1)
	go func() { done <- transport.Run(ctx) }()

	if teamID != "" {
		if err := session.SwitchRoom(ctx, teamID); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, session, line, cmd.ErrOrStderr()); quit {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, s *chatclient.Session, line string, errOut io.Writer) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	var err error
	switch {
	case line == "/quit":
		return true
	case strings.HasPrefix(line, "/team "):
		err = s.SwitchRoom(ctx, strings.TrimPrefix(line, "/team "))
	case strings.HasPrefix(line, "/retry "):
		err = s.Retry(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/retry ")))
	default:
		_, err = s.Send(ctx, line)
	}
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
	}
	return false
}

// printer writes each entry once per delivery state, so confirmations and
// failures show up as new lines under the message.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	room   string
	status chatclient.Status
	seen   map[string]chatclient.DeliveryState
}

func (p *printer) render(s *chatclient.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if status := s.Status(); status != p.status {
		p.status = status
		fmt.Fprintf(p.w, "-- %s\n", status)
	}
	if room := s.Room(); room != p.room {
		p.room = room
		p.seen = make(map[string]chatclient.DeliveryState)
		fmt.Fprintf(p.w, "-- team %s\n", room)
	}

	for _, e := range s.Messages() {
		if state, ok := p.seen[e.Message.ID]; ok && state == e.State {
			continue
		}
		p.seen[e.Message.ID] = e.State
		name := e.Message.SenderName
		if name == "" {
			name = e.Message.Sender
		}
		switch e.State {
		case chatclient.StateSent:
			fmt.Fprintf(p.w, "[%s] %s: %s\n", e.Message.CreatedAt.Local().Format("15:04"), name, e.Message.Body)
		case chatclient.StatePending:
			fmt.Fprintf(p.w, "[....] %s: %s\n", name, e.Message.Body)
		case chatclient.StateFailed:
			fmt.Fprintf(p.w, "[fail] %s (%s) /retry %s\n", e.Message.Body, e.Error, e.Message.ID)
		}
	}
}
