package client

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

const statusInterval = 30 * time.Second

// statusLoop periodically logs sync queue depth and process resource usage.
func (c *Client) statusLoop(ctx context.Context) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Debug("status loop disabled", "error", err)
		proc = nil
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.sync.Stats()
			attrs := []any{
				"pending", stats.Pending,
				"inFlight", stats.InFlight,
			}
			if proc != nil {
				if mem, err := proc.MemoryInfo(); err == nil {
					attrs = append(attrs, "rss", humanize.Bytes(mem.RSS))
				}
				if cpu, err := proc.CPUPercent(); err == nil {
					attrs = append(attrs, "cpu", cpu)
				}
			}
			slog.Info("sync status", attrs...)
		}
	}
}
