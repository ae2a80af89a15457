package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/speakerhub/orchestrator/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the topology the running daemon currently owns",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	result, err := ipc.NewClient().Status()
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(result)
}
