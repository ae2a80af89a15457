package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/speakerhub/orchestrator/internal/config"
	"github.com/speakerhub/orchestrator/internal/ipc"
)

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <config.json>",
	Short: "Disconnect a speaker configuration via the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisconnect,
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}

	result, err := ipc.NewClient().Disconnect(cfg)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(result)
}
