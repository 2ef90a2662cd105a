package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cardscan/internal/config"
	"cardscan/internal/store"
)

// commandContext carries lazily loaded configuration shared by all
// subcommands of one invocation.
type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads configuration once and creates the runtime
// directories. The index directory is deliberately not created here: its
// absence is how a missing visual index surfaces.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var explicit string
		if c.configFlag != nil {
			explicit = strings.TrimSpace(*c.configFlag)
		}
		cfg, path, exists, err := config.Load(explicit)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// withStore opens the resolution cache for the duration of fn.
func (c *commandContext) withStore(fn func(cfg *config.Config, st *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

// shouldSkipConfig walks the command chain looking for the skipConfigLoad
// annotation, used by commands that must run before a config file exists.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations != nil && current.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
