package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ShowProgress runs fn while a spinner labelled message runs on stderr.
// Without a terminal it logs the message and runs fn directly.
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	if !isTerminal(os.Stderr) {
		LogInfo(message)
		return fn()
	}
	return spin(ctx, os.Stderr, message, fn)
}

func spin(ctx context.Context, w io.Writer, message string, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case err := <-done:
			mark := successStyle.Render("✓")
			if err != nil {
				mark = errorStyle.Render("✗")
			}
			fmt.Fprintf(w, "\r%s %s\n", mark, message)
			return err
		case <-ctx.Done():
			fmt.Fprintf(w, "\r%s %s\n", warningStyle.Render("…"), message)
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprintf(w, "\r%s %s", progressStyle.Render(spinnerFrames[i%len(spinnerFrames)]), message)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintSuccess prints a success line to w
func PrintSuccess(w io.Writer, message string) {
	printMarked(w, successStyle, "✓", "", message)
}

// PrintError prints an error line to w
func PrintError(w io.Writer, message string) {
	printMarked(w, errorStyle, "✗", "", message)
}

// PrintInfo prints an informational line to w
func PrintInfo(w io.Writer, message string) {
	printMarked(w, progressStyle, "ℹ", "", message)
}

// PrintWarning prints a warning line to w
func PrintWarning(w io.Writer, message string) {
	printMarked(w, warningStyle, "⚠", "WARNING: ", message)
}

func printMarked(w io.Writer, style lipgloss.Style, mark, plainPrefix, message string) {
	if isTerminal(w) {
		fmt.Fprintf(w, "%s %s\n", style.Render(mark), message)
		return
	}
	fmt.Fprintf(w, "%s%s\n", plainPrefix, message)
}
