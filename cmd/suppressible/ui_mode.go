package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"suppressible/internal/driver"
	"suppressible/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode, quiet bool) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return !quiet && isTerminal(os.Stderr)
	}
}

// withProgress runs body with a progress sink attached to opts, rendering a
// live file view on stderr when the --ui mode allows it.
func withProgress(cmd *cobra.Command, title string, opts *driver.Options, body func() error) error {
	value, err := cmd.Root().PersistentFlags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(value)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	if !shouldUseTUI(mode, quiet) {
		return body()
	}

	events := make(chan driver.Event, 256)
	outcome := make(chan error, 1)
	opts.Progress = driver.ChannelSink{Ch: events}
	go func() {
		outcome <- body()
		close(events)
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, events), tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// Drain so the body never blocks on a full channel after an early quit.
	for range events {
	}
	err = <-outcome
	if uiErr != nil {
		return uiErr
	}
	return err
}
