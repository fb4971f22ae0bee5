package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration. Flags override the environment.
type Config struct {
	ServerURL  string `env:"TPCTL_SERVER" envDefault:"http://localhost:8080"`
	Token      string `env:"TPCTL_TOKEN"`
	TokenFile  string `env:"TPCTL_TOKEN_FILE"`
	AdminToken string `env:"TPCTL_ADMIN_TOKEN"`
	Output     string `env:"TPCTL_OUTPUT" envDefault:"text"`
}

// DefaultConfig reads TPCTL_* from the environment
func DefaultConfig() *Config {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		// only string fields, so parsing cannot fail on values
		panic(fmt.Sprintf("parse env: %v", err))
	}
	if c.TokenFile == "" {
		c.TokenFile = defaultTokenFile()
	}
	return c
}

// LoadToken reads the saved session token unless one was given directly
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}
	data, err := os.ReadFile(c.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken writes token to the token file, readable only by the owner
func (c *Config) SaveToken(token string) error {
	c.Token = token
	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	return os.WriteFile(c.TokenFile, []byte(token), 0o600)
}

// ClearToken removes the saved token
func (c *Config) ClearToken() error {
	c.Token = ""
	if err := os.Remove(c.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tpctl", "token")
	}
	return filepath.Join(home, ".tpctl", "token")
}
