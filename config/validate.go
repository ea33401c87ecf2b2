package config

import (
	"strconv"

	"github.com/buildsys/brick-api/errors"
)

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port <= 0 || port > 65535 {
		return errors.Wrapf(errors.ErrInvalidConfig, "server.port must be a port number, got %q", c.Server.Port)
	}
	if c.Server.QueryRateLimit < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "server.query_rate_limit must be >= 0, got %v", c.Server.QueryRateLimit)
	}
	if c.Server.QueryRateLimit > 0 && c.Server.QueryBurst <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "server.query_burst must be > 0 when rate limiting, got %d", c.Server.QueryBurst)
	}
	if c.Graph.BaseURI == "" {
		return errors.Wrap(errors.ErrInvalidConfig, "graph.base_uri cannot be empty")
	}
	if c.Graph.Snapshot == "" && len(c.Graph.Files) == 0 {
		return errors.WithHint(
			errors.Wrap(errors.ErrInvalidConfig, "graph.files is empty"),
			"list at least one Turtle file or set graph.snapshot",
		)
	}
	return nil
}
