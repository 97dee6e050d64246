// Command arenaduel runs the real-time multiplayer avatar battle
// server described in this repository's SPEC_FULL.md.
//
// Usage:
//
//	arenaduel serve           - Start the WebSocket + HTTP battle server
//
// Global flags:
//
//	--config <path>  - Explicit config file path (overrides the search order)
//	--db <path>      - Path to the model metadata database (default: ~/.arenaduel/models.db)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagDBPath     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arenaduel",
	Short: "Arena Duel - real-time multiplayer avatar battle server",
	Long: `Arena Duel is the matchmaking and battle server for a real-time
multiplayer 3D avatar duel: clients advertise and join matches over
WebSocket, select an uploaded 3D model as their Character, and fight
until one side's hp reaches zero.

Available commands:
  serve    - Start the WebSocket + HTTP server

Examples:
  arenaduel serve
  arenaduel serve --addr :9090
  arenaduel serve --db ./models.db`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to a server.yaml config file (overrides the search order)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to the model metadata database (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
