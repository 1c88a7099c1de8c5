// Command ceremonyd runs the ceremony coordinator control plane: the
// Queue Coordinator and Refresher (wired to the store's document
// triggers) plus the verifyContribution/finalizeCircuit HTTP RPC surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zkceremony/coordinator/config"
	"github.com/zkceremony/coordinator/daemon"
	"github.com/zkceremony/coordinator/log"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "ceremonyd",
		Short: "Run the ceremony coordinator control plane",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file overlaying environment variables")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Init(cfg.Log.Level, cfg.Log.Output, nil)

	if err := cfg.VerificationSoftware.Validate(); err != nil {
		return err
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("building daemon: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	defer d.Stop()

	<-ctx.Done()
	log.Infow("shutting down")
	return nil
}
