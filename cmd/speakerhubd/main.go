// Command speakerhubd runs the Connection Orchestrator, either as a
// long-running daemon behind a Unix socket or as a one-shot CLI driver
// against an already-running daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/speakerhub/orchestrator/internal/orcherr"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "speakerhubd",
	Short: "BLE-driven multi-speaker audio hub orchestrator",
	Long: `speakerhubd turns a multi-radio Linux host into a BLE-driven
multi-speaker audio hub: it pairs, connects and wires Bluetooth
speakers into a combined PulseAudio output on command from a driver
(normally a BLE GATT server, here stood in for by a small Unix-socket
daemon and CLI).`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(orcherr.ExitCode(err))
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(statusCmd)
}
