package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/engine/rag"
)

func newRetrieveCommand(ctx *commandContext) *cobra.Command {
	var (
		history      []string
		scenarioFile string
		sets         []string
		topN         int
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "retrieve <input>",
		Short: "Find historical exchanges relevant to a conversational turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := ctx.ensureApp(cmd)
			scenario, err := buildScenario(scenarioFile, sets)
			if err != nil {
				return err
			}
			req := rag.Request{Input: args[0], Scenario: scenario, TopN: topN}
			for _, h := range history {
				req.History = append(req.History, rag.Turn{Role: "user", Content: h})
			}
			r, err := a.Retriever(cmd.Context())
			if err != nil {
				return err
			}
			matches := r.Retrieve(cmd.Context(), req)
			if asJSON {
				return writeJSON(cmd, matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}
			for i, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (%.3f)\n%s\n\n", i+1, m.ID, m.Score, m.Document)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&history, "history", nil, "Previous turn content (repeatable, oldest first)")
	cmd.Flags().StringVar(&scenarioFile, "scenario", "", "JSON file with the scenario descriptor")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Scenario field as key=value (repeatable)")
	cmd.Flags().IntVarP(&topN, "top-n", "n", 0, "Number of matches (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print matches as JSON")
	return cmd
}

// buildScenario reads an optional scenario file and applies key=value
// overrides on top of it.
func buildScenario(path string, sets []string) (domain.ScenarioDescriptor, error) {
	var s domain.ScenarioDescriptor
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read scenario: %w", err)
		}
		if err := json.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("decode scenario %s: %w", path, err)
		}
	}
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return s, fmt.Errorf("scenario field %q: want key=value", kv)
		}
		switch k {
		case "type":
			s.Type = v
		case "setting":
			s.Setting = v
		case "goal":
			s.Goal = v
		case "system_archetype":
			s.SystemArchetype = v
		case "player_sex":
			s.PlayerSex = v
		case "system_sex":
			s.SystemSex = v
		case "roast_level":
			n, err := strconv.Atoi(v)
			if err != nil {
				return s, fmt.Errorf("roast_level: %w", err)
			}
			s.RoastLevel = n
		default:
			if s.Extra == nil {
				s.Extra = map[string]string{}
			}
			s.Extra[k] = v
		}
	}
	return s, domain.ValidateScenario(s)
}
