// Package main provides queuectl, an operator tool for inspecting and
// resetting the on-disk queue state.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/torigoya/requestq/internal/domain/shuffle"
	"github.com/torigoya/requestq/internal/infra/repository"
)

var (
	app       = kingpin.New("queuectl", "Inspect and manage the requestq store")
	storePath = app.Flag("store", "Path to the data store").Default("data/requestq").String()

	showCmd    = app.Command("show", "Print the current queue, ledger and shuffle state")
	historyCmd = app.Command("history", "Print played songs")
	histLimit  = historyCmd.Flag("limit", "Maximum entries to print (0 = all)").Default("20").Int()

	resetCmd   = app.Command("reset", "Reset per-stream state")
	resetQueue = resetCmd.Flag("queue", "Clear the queue").Bool()
	resetBumps = resetCmd.Flag("bumps", "Clear the bump ledger").Bool()
)

func main() {
	_ = godotenv.Load()
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	store, err := repository.Open(*storePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	var cmdErr error
	switch command {
	case showCmd.FullCommand():
		cmdErr = show(ctx, store)
	case historyCmd.FullCommand():
		cmdErr = history(ctx, store, *histLimit)
	case resetCmd.FullCommand():
		cmdErr = reset(ctx, store, *resetQueue, *resetBumps)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", cmdErr)
		os.Exit(1)
	}
}

func show(ctx context.Context, store *repository.Store) error {
	songs, err := store.LoadQueueState(ctx)
	if err != nil {
		return err
	}
	counts, err := store.LoadBumpLedger(ctx)
	if err != nil {
		return err
	}
	state, ok, err := store.LoadShuffleState(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Queue (%d songs):\n", len(songs))
	for i, s := range songs {
		marker := " "
		if s.Bumped {
			marker = "*"
		}
		fmt.Printf("  %2d %s %-40s %-16s %s\n", i, marker, s.Title, s.Requester.Name, s.Duration.Round(time.Second))
	}

	fmt.Printf("Bump ledger (%d users):\n", len(counts))
	for user, n := range counts {
		fmt.Printf("  %-24s %d\n", user, n)
	}

	if !ok {
		state = shuffle.State{}
	}
	fmt.Printf("Shuffle: enabled=%v open=%v entrants=%d cooldown=%d\n",
		state.Enabled, state.Open, len(state.Entrants), len(state.Cooldown))
	return nil
}

func history(ctx context.Context, store *repository.Store, limit int) error {
	played, err := store.History(ctx, limit)
	if err != nil {
		return err
	}
	for _, s := range played {
		fmt.Printf("  %-40s %-16s %s\n", s.Title, s.Requester.Name, s.Duration.Round(time.Second))
	}
	return nil
}

func reset(ctx context.Context, store *repository.Store, clearQueue, clearBumps bool) error {
	if !clearQueue && !clearBumps {
		return fmt.Errorf("nothing to reset: pass --queue and/or --bumps")
	}
	if clearQueue {
		if err := store.SaveQueueState(ctx, nil); err != nil {
			return err
		}
		fmt.Println("queue cleared")
	}
	if clearBumps {
		if err := store.SaveBumpLedger(ctx, map[string]int{}); err != nil {
			return err
		}
		fmt.Println("bump ledger cleared")
	}
	return nil
}
