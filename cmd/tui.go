// Package cmd command line
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	errors "github.com/Laisky/errors/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Laisky/tamerlane/cmd/tui"
	"github.com/Laisky/tamerlane/library/config"
	"github.com/Laisky/tamerlane/library/log"
)

var tuiCMD = &cobra.Command{
	Use:   "tui [content-url]",
	Short: "Browse IIIF content in the terminal",
	Long: `Launch an interactive Terminal User Interface (TUI) viewer.

The viewer opens a IIIF manifest or collection and lets you:
  • Step through the manifests of a collection
  • Run full-text searches against the content search service
  • Filter results by language and jump to the matching canvas

Example:
  tamerlane tui https://example.org/iiif/manifest.json

Keyboard shortcuts:
  o           Open other content
  /           Search
  n/p         Next / previous manifest
  ]/[         Next / previous canvas
  tab         Switch between canvases and search results, complete a search
  l           Cycle language filter
  enter       Select a canvas or search result
  q           Quit`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
			os.Exit(1)
		}

		var contentURL string
		if len(args) > 0 {
			contentURL = args[0]
		}
		if err := runTUI(ctx, contentURL); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCMD.AddCommand(tuiCMD)
}

// runTUI starts the interactive Terminal User Interface and returns any start/run error.
func runTUI(ctx context.Context, contentURL string) error {
	// console logs would tear the alternate screen
	logPath := filepath.Join(os.TempDir(), "tamerlane-tui.log")
	if err := log.RedirectToFile(logPath); err != nil {
		return errors.WithStack(err)
	}

	store, err := newSession()
	if err != nil {
		return errors.WithStack(err)
	}

	model := tui.NewModel(ctx, store, tui.Config{
		AppName:    config.AppName(),
		ShowLogo:   config.ShowLogo(),
		ContentURL: contentURL,
		PageSize:   config.ManifestPageLimit(),
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()
	return errors.WithStack(err)
}
