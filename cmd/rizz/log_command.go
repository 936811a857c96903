package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/pkg/fn"
)

type logRow struct {
	URL        string        `json:"url"`
	Timestamp  time.Time     `json:"timestamp"`
	Status     domain.Status `json:"status"`
	Error      string        `json:"error,omitempty"`
	Retries    int           `json:"retries"`
	OutputPath string        `json:"output_path,omitempty"`
}

func newLogRow(e domain.ProcessingLogEntry) logRow {
	return logRow{URL: e.URL, Timestamp: e.Timestamp, Status: e.Status, Error: e.Error, Retries: e.Retries, OutputPath: e.OutputPath}
}

func newLogCommand(ctx *commandContext) *cobra.Command {
	var status string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the processing log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := ctx.ensureApp(cmd)
			store, err := a.LogStore(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if status != "" {
				entries = fn.Filter(entries, func(e domain.ProcessingLogEntry) bool { return string(e.Status) == status })
			}
			rows := fn.Map(entries, newLogRow)
			sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.After(rows[j].Timestamp) })

			if asJSON {
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "log is empty")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STATUS\tRETRIES\tUPDATED\tURL\tDETAIL")
			for _, r := range rows {
				detail := r.OutputPath
				if r.Error != "" {
					detail = r.Error
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.Status, r.Retries, r.Timestamp.Format(time.RFC3339), r.URL, detail)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show entries with this status (pending, transcribed, failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}
