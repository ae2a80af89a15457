package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/speakerhub/orchestrator/internal/config"
	"github.com/speakerhub/orchestrator/internal/ipc"
	"github.com/speakerhub/orchestrator/internal/orcherr"
)

var applyCmd = &cobra.Command{
	Use:   "apply <config.json>",
	Short: "Apply a speaker configuration via the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if len(cfg.Targets) == 0 {
		return orcherr.ErrConfigEmpty
	}

	result, err := ipc.NewClient().Apply(cfg)
	if result != nil {
		if encErr := json.NewEncoder(os.Stdout).Encode(result); encErr != nil {
			return encErr
		}
	}
	return err
}
