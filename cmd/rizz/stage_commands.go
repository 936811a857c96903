package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/rizz-engine/engine/chunker"
	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/engine/ingest"
	"github.com/WessleyAI/rizz-engine/engine/tagger"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate <url>",
		Short:       "Check whether a URL is a supported video link",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := domain.ValidateVideoURL(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", domain.DetectPlatform(args[0]))
			return nil
		},
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <url>",
		Short: "Acquire, chunk, tag and index one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := ctx.ensureApp(cmd)
			pipeline, err := a.Pipeline(cmd.Context(), ingest.NewMetrics(a.Metrics))
			if err != nil {
				return err
			}
			done, err := pipeline(cmd.Context(), ingest.Job{URL: args[0]}).Unwrap()
			if err != nil {
				return err
			}
			return writeJSON(cmd, done)
		},
	}
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "transcribe [url]",
		Short: "Download, transcribe and diarize a video (or every URL in --file)",
		Args: func(cmd *cobra.Command, args []string) error {
			if file == "" && len(args) != 1 {
				return errors.New("transcribe: give one url or --file")
			}
			if file != "" && len(args) != 0 {
				return errors.New("transcribe: url and --file are exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := ctx.ensureApp(cmd)
			acq, err := a.Acquirer(cmd.Context())
			if err != nil {
				return err
			}
			if file == "" {
				path, err := acq.Process(cmd.Context(), args[0]).Unwrap()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}

			outcomes, err := acq.ProcessFile(cmd.Context(), file)
			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", o.URL, o.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK   %s -> %s\n", o.URL, o.Path)
			}
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("transcribe: %d of %d urls failed", failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one https:// URL per line")
	return cmd
}

func newChunkCommand(ctx *commandContext) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "chunk <transcript.txt>",
		Short: "Segment a speaker transcript into exchange blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := ctx.ensureApp(cmd)
			lines, err := chunker.ReadTranscript(args[0])
			if err != nil {
				return err
			}
			ch, err := a.Chunker(cmd.Context())
			if err != nil {
				return err
			}
			chunks, err := ch.Run(cmd.Context(), lines)
			if err != nil {
				return err
			}
			if out == "" {
				out = chunker.OutputPath(args[0])
			}
			if err := chunker.WriteChunks(out, chunks); err != nil {
				return err
			}
			failed := 0
			for _, c := range chunks {
				if c.Failed() {
					failed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks, %d failed\n", out, len(chunks), failed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default <transcript>_chunked.json)")
	return cmd
}

func newTagCommand(ctx *commandContext) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "tag <chunked.json>",
		Short: "Annotate every block with structured metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := ctx.ensureApp(cmd)
			chunks, err := chunker.ReadChunks(args[0])
			if err != nil {
				return err
			}
			tg, err := a.Tagger(cmd.Context())
			if err != nil {
				return err
			}
			tagged, stats, err := tg.Run(cmd.Context(), chunks)
			if err != nil {
				return err
			}
			if out == "" {
				out = tagger.OutputPath(args[0])
			}
			if err := tagger.WriteTagged(out, tagged); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tagged, %d failed, %d chunks skipped\n", out, stats.Tagged, stats.Failed, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default <base>_tagged.json)")
	return cmd
}

func newMergeScenarioCommand(ctx *commandContext) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "merge-scenario <tagged.json> <scenarios.json>",
		Short: "Overlay curated scenario fields onto tagging results",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := ctx.ensureApp(cmd)
			tagged, err := tagger.ReadTagged(args[0])
			if err != nil {
				return err
			}
			scenarios, err := tagger.ReadScenarios(args[1])
			if err != nil {
				return err
			}
			counts := tagger.MergeScenarios(tagged, scenarios, a.Logger)
			if out == "" {
				out = args[0]
			}
			if err := tagger.WriteTagged(out, tagged); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d merged, %d missing, %d invalid\n", out, counts.Merged, counts.Missing, counts.Invalid)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: overwrite the tagged file)")
	return cmd
}

func newIndexCommand(ctx *commandContext) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "index <tagged.json>",
		Short: "Embed tagged blocks and upsert them into the vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := ctx.ensureApp(cmd)
			tagged, err := tagger.ReadTagged(args[0])
			if err != nil {
				return err
			}
			ix, err := a.Indexer(cmd.Context(), nil)
			if err != nil {
				return err
			}
			counts := ix.Index(cmd.Context(), tagged)

			if url != "" {
				g, err := a.Graph(cmd.Context())
				switch {
				case err != nil:
					a.Logger.Warn("tag graph unavailable", "error", err)
				case g != nil:
					n, err := g.SaveTagged(cmd.Context(), url, tagged)
					if err != nil {
						a.Logger.Warn("tag graph write failed", "error", err)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "graph: %d exchanges\n", n)
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d, errors %d\n", counts.Processed, counts.Errors)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Source video URL; also records exchanges in the tag graph")
	return cmd
}
