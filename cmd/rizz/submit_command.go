package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/engine/ingest"
	"github.com/WessleyAI/rizz-engine/pkg/natsutil"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a video for the ingest worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := ctx.ensureApp(cmd)
			if err := domain.ValidateVideoURL(args[0]); err != nil {
				return err
			}
			nc, err := nats.Connect(a.Config.NATS.URL, nats.Name("rizz-cli"))
			if err != nil {
				return fmt.Errorf("nats connect: %w", err)
			}
			defer nc.Close()

			job := ingest.Job{URL: args[0]}
			if wait <= 0 {
				if err := natsutil.Publish(cmd.Context(), nc, ingest.RequestSubject, job); err != nil {
					return err
				}
				if err := nc.Flush(); err != nil {
					return fmt.Errorf("nats flush: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", args[0])
				return nil
			}

			reqCtx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			done, err := natsutil.Request[ingest.Job, ingest.Done](reqCtx, nc, ingest.RequestSubject, job)
			if err != nil {
				return err
			}
			return writeJSON(cmd, done)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait this long for the worker's reply (0 = fire and forget)")
	return cmd
}
