/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pipecraft/apiserver/config"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/mq"
	"github.com/pipecraft/apiserver/internal/storage"
	"github.com/spf13/cobra"
)

// janitorCmd consumes orphaned-blob notifications and retries their deletion.
var janitorCmd = &cobra.Command{
	Use:   "janitor",
	Short: "Delete blobs the API server failed to remove",
	Long: `Subscribes to the orphaned-blob channel and deletes every object the
API server reported as unreferenced. Requires MQ_BACKEND to be rabbitmq or
pubsub.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(os.Stdout, cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		objects, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("janitor requires MQ_BACKEND to be rabbitmq or pubsub")
		}
		defer queue.Close()

		err = mq.NewJanitor(queue, cfg.MQ.OrphanChannel, objects, logger).Run(ctx)
		if err != nil && !errors.Is(err, ctx.Err()) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(janitorCmd)
}
