package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"browser-agent/internal/di"
	"browser-agent/internal/infrastructure/userinteraction"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Interactive console: read an instruction, plan, execute, print progress",
	RunE:  runConsole,
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Progress goes to the console; keep the log file only.
	cfg.Log.Console = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := userinteraction.NewConsole()
	container, err := di.NewContainer(ctx, cfg, console)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer container.Close()

	fmt.Println("Enter an instruction for the agent (Ctrl+D to exit).")

	var sessionID string
	for ctx.Err() == nil {
		instruction, err := console.AskInstruction(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if instruction == "" {
			continue
		}

		turn, err := container.Turns.HandleInstruction(ctx, sessionID, instruction)
		if err != nil {
			container.Logger.Error("Turn failed", "error", err)
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
			continue
		}
		sessionID = turn.SessionID

		if _, err := container.Sequencer.Wait(ctx); err != nil {
			container.Sequencer.StopExecution()
			return nil
		}
	}
	return nil
}
