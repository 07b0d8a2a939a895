package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorlink/internal/app"
	"tutorlink/internal/config"
	"tutorlink/internal/lifecycle"
	"tutorlink/pkg/types"
)

// terminalAlerter prints pushed notifications to the terminal instead of
// burying them in the log stream.
type terminalAlerter struct{}

func (terminalAlerter) Alert(n types.Notification) {
	fmt.Printf("\n*** %s", n.Title)
	if n.Content != "" {
		fmt.Printf(": %s", n.Content)
	}
	fmt.Println(" ***")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("TUTORLINK_CONFIG_FILE"), "path to config file")
	roomID := flag.String("room", "", "room to join; empty lists rooms and exits")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	application, err := app.New(cfg, app.WithAlerter(terminalAlerter{}))
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		fmt.Println("\nshutting down")
		cancel()
	}()

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	err = application.Start(startCtx)
	startCancel()
	if err != nil {
		return err
	}

	if *roomID == "" {
		return listRooms(ctx, application)
	}
	return joinRoom(ctx, application, *roomID)
}

// listRooms prints the caller's rooms, one per line.
func listRooms(ctx context.Context, application *app.Application) error {
	rooms, err := application.Channel().Rooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}
	if len(rooms) == 0 {
		fmt.Println("no rooms")
		return nil
	}
	for _, room := range rooms {
		fmt.Printf("%s  [%s]  %s\n", room.ID, room.Status, room.PostTitle)
	}
	return nil
}

// joinRoom subscribes to a room, prints its backlog then every live
// message, and sends each stdin line until the context ends.
func joinRoom(ctx context.Context, application *app.Application, roomID string) error {
	status, err := application.Lifecycle().GetStatus(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to fetch room status: %w", err)
	}
	printStatus(status)
	if status.RemainingSeconds != nil {
		go runCountdown(ctx, *status.RemainingSeconds)
	}

	backlog, err := application.Channel().JoinRoom(ctx, roomID, printMessage)
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}
	for _, msg := range backlog {
		printMessage(msg)
	}
	defer application.Channel().LeaveRoom(roomID)

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
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if err := application.Channel().Send(ctx, roomID, line, nil); err != nil {
				fmt.Fprintln(os.Stderr, "send failed:", err)
			}
		}
	}
}

func printStatus(status *lifecycle.Status) {
	fmt.Printf("room %s: %s\n", status.Room.ID, status.Room.Status)
	if status.RemainingSeconds != nil {
		fmt.Printf("time remaining: %ds\n", *status.RemainingSeconds)
	}
}

func printMessage(msg types.Message) {
	line := fmt.Sprintf("[%s] %s: %s", msg.CreatedAt.Format("15:04:05"), msg.Email, msg.Content)
	if msg.FileName != "" {
		line += fmt.Sprintf(" (attachment: %s)", msg.FileName)
	}
	fmt.Println(line)
}

// runCountdown ticks the expiry window down and announces when it lapses.
func runCountdown(ctx context.Context, seconds int) {
	countdown := lifecycle.NewCountdown(seconds)
	defer countdown.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case remaining, ok := <-countdown.C:
			if !ok {
				fmt.Println("*** room expired ***")
				return
			}
			if remaining <= 10 || remaining%60 == 0 {
				fmt.Printf("time remaining: %ds\n", remaining)
			}
		}
	}
}
