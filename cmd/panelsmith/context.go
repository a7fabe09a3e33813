package main

import (
	"net"
	"strings"
	"sync"

	"panelsmith/internal/api"
	"panelsmith/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// serverAddr resolves the daemon address. An explicit flag wins; otherwise
// the configured API bind is used when a config file loads cleanly, and the
// client falls back to the default local daemon.
func (c *commandContext) serverAddr() string {
	if c.serverFlag != nil {
		if addr := strings.TrimSpace(*c.serverFlag); addr != "" {
			return addr
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		if bind := strings.TrimSpace(cfg.API.Bind); bind != "" {
			return bindToAddr(bind)
		}
	}
	return api.DefaultServerAddr
}

func (c *commandContext) client() *api.Client {
	return api.NewClient(c.serverAddr())
}

// bindToAddr converts a listen bind like ":8750" or "0.0.0.0:8750" into an
// address the client can dial.
func bindToAddr(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil || port == "" {
		return bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
