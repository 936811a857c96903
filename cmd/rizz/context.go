package main

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/rizz-engine/engine/app"
	"github.com/WessleyAI/rizz-engine/pkg/config"
)

type commandContext struct {
	configFlag *string
	logLevel   *string

	once sync.Once
	app  *app.App
	err  error
}

func newCommandContext(configFlag, logLevel *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevel: logLevel}
}

// ensureApp loads configuration once per process. Logs go to stderr so
// command output on stdout stays parseable.
func (c *commandContext) ensureApp(cmd *cobra.Command) (*app.App, error) {
	c.once.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		if lvl := strings.TrimSpace(*c.logLevel); lvl != "" {
			cfg.LogLevel = lvl
		}
		logger := app.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
		c.app = app.New(cfg, logger)
	})
	return c.app, c.err
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
