package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shiptrack/internal/client"
	"shiptrack/internal/config"
	"shiptrack/internal/jobs"
)

const userIDEnv = "SHIPTRACK_USER_ID"

type rootFlags struct {
	configPath string
	serverURL  string
	userID     int64
	jsonOutput bool
}

type commandContext struct {
	flags *rootFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonMode() bool {
	return c.flags != nil && c.flags.jsonOutput
}

// actingUser resolves the user id from --user or SHIPTRACK_USER_ID.
func (c *commandContext) actingUser() (int64, error) {
	if c.flags.userID > 0 {
		return c.flags.userID, nil
	}
	if raw := strings.TrimSpace(os.Getenv(userIDEnv)); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("%s must be a positive integer", userIDEnv)
		}
		return id, nil
	}
	return 0, errors.New("acting user required: pass --user or set " + userIDEnv)
}

// apiClient returns an HTTP client acting as the resolved user. When
// requireUser is false a missing user id is tolerated.
func (c *commandContext) apiClient(requireUser bool) (*client.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	userID, err := c.actingUser()
	if err != nil && requireUser {
		return nil, err
	}
	if base := strings.TrimSpace(c.flags.serverURL); base != "" {
		return client.New(base, userID, client.WithToken(cfg.Paths.APIToken)), nil
	}
	return client.FromConfig(cfg, userID), nil
}

// withStore opens the job store directly for commands that do not go
// through the server.
func (c *commandContext) withStore(fn func(*jobs.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parseJobID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", value)
	}
	return id, nil
}
