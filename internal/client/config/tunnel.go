package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// TunnelURLFile is written next to the config by a public-tunnel
	// wrapper around the server; a fresh entry overrides server_url.
	TunnelURLFile = "tunnel_url.json"

	tunnelURLMaxAge = 5 * time.Minute
)

type tunnelInfo struct {
	URL       string  `json:"url"`
	Timestamp float64 `json:"timestamp"`
}

// ResolveServerURL returns the tunnel URL when a fresh tunnel file sits
// next to the config, otherwise the configured server URL. A stale or
// unreadable tunnel file is ignored.
func (c *Config) ResolveServerURL() string {
	dir := filepath.Dir(c.Path)
	if c.Path == "" {
		dir = filepath.Dir(DefaultConfigPath)
	}

	data, err := os.ReadFile(filepath.Join(dir, TunnelURLFile))
	if err != nil {
		return c.ServerURL
	}

	var info tunnelInfo
	if err := json.Unmarshal(data, &info); err != nil || info.URL == "" {
		slog.Debug("ignoring malformed tunnel url file", "error", err)
		return c.ServerURL
	}

	age := time.Since(time.Unix(int64(info.Timestamp), 0))
	if age > tunnelURLMaxAge {
		slog.Debug("ignoring stale tunnel url", "url", info.URL, "age", age)
		return c.ServerURL
	}

	slog.Info("using tunnel url", "url", info.URL)
	return info.URL
}
