package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/openmirror/drivebox/internal/utils"
)

// seed pulls the remote inventory down into the local tree. Directories are
// created first, shallowest first, then any file absent locally is
// downloaded. Existing local files are left untouched; the reconcile pass
// that follows resolves content differences by pushing.
func (c *Client) seed(ctx context.Context) error {
	items, err := c.sdk.List(ctx)
	if err != nil {
		return fmt.Errorf("list remote: %w", err)
	}

	var dirs, files []string
	for _, item := range items {
		if item.IsDir {
			dirs = append(dirs, item.Path)
		} else {
			files = append(files, item.Path)
		}
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		if err := os.MkdirAll(c.workspace.AbsPath(dir), 0o755); err != nil {
			return fmt.Errorf("create %q: %w", dir, err)
		}
	}

	var fetched int
	for _, path := range files {
		localPath := c.workspace.AbsPath(path)
		if utils.FileExists(localPath) {
			continue
		}
		if err := c.downloadTo(ctx, path, localPath); err != nil {
			slog.Warn("seed download failed", "path", path, "error", err)
			continue
		}
		fetched++
	}

	slog.Info("seed complete", "dirs", len(dirs), "files", len(files), "fetched", fetched)
	return nil
}

// downloadTo writes through a temp file in the same directory so a partial
// download never lands at the final path.
func (c *Client) downloadTo(ctx context.Context, remotePath, localPath string) error {
	body, err := c.sdk.Download(ctx, remotePath)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := utils.EnsureParent(localPath); err != nil {
		return err
	}

	tmpPath := localPath + ".tmp-" + uuid.NewString()
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
