package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/speakerhub/orchestrator/internal/audio"
	"github.com/speakerhub/orchestrator/internal/bluez"
	"github.com/speakerhub/orchestrator/internal/config"
	"github.com/speakerhub/orchestrator/internal/ipc"
	"github.com/speakerhub/orchestrator/internal/logging"
	"github.com/speakerhub/orchestrator/internal/orchestrator"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the orchestrator behind the IPC socket",
	Long: `Run the Orchestrator Facade behind a Unix-domain-socket JSON
server, standing in for a real BLE GATT server driving the facade
in-process.`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log := logging.New(logLevel)

	bt, err := bluez.New()
	if err != nil {
		return err
	}
	defer bt.Close()

	aud, err := audio.New()
	if err != nil {
		return err
	}
	defer aud.Close()

	facade := orchestrator.New(bt, aud, log, config.ReservedController())
	server := ipc.NewServer(facade, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.ListenAndServe(ctx)
}
