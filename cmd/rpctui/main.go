// ABOUTME: Entry point for the jsonrpcd traffic inspector
// ABOUTME: Reads the traffic log from SQLite or the management API and starts the Bubbletea application
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/logger"
	"github.com/harper/jsonrpcd/internal/tui"
	"github.com/harper/jsonrpcd/internal/xdg"
)

func main() {
	dbPath := flag.String("db", xdg.DefaultDatabasePath(), "path to the jsonrpcd traffic database")
	themeName := flag.String("theme", "default", "color theme: default, dark, or light")
	apiURL := flag.String("api", "", "read from a running server's management API (e.g. http://127.0.0.1:8082) instead of -db")
	refresh := flag.Duration("refresh", tui.DefaultRefresh, "how often to re-read the database")
	flag.Parse()

	// Log lines would corrupt the alternate screen
	logger.SetOutput(io.Discard)

	var source tui.Source
	if *apiURL != "" {
		source = tui.NewManagementSource(*apiURL)
	} else {
		database, err := db.OpenReadOnly(xdg.ExpandPath(*dbPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer database.Close()
		source = database
	}

	m := tui.NewModel(source, tui.Options{Theme: *themeName, Refresh: clampRefresh(*refresh)})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func clampRefresh(d time.Duration) time.Duration {
	if d < 100*time.Millisecond {
		return 100 * time.Millisecond
	}
	return d
}
