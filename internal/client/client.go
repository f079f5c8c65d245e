// Package client wires the sync daemon: workspace, remote store client,
// remote seed, reconciliation and the live sync manager.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openmirror/drivebox/internal/client/config"
	"github.com/openmirror/drivebox/internal/client/sync"
	"github.com/openmirror/drivebox/internal/client/workspace"
	"github.com/openmirror/drivebox/internal/storesdk"
)

type Client struct {
	config     *config.Config
	workspace  *workspace.Workspace
	sdk        *storesdk.Client
	sync       *sync.Manager
	instanceId string
}

func New(cfg *config.Config) (*Client, error) {
	ws, err := workspace.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	instanceId := uuid.NewString()
	sdk, err := storesdk.New(cfg.ResolveServerURL(), instanceId)
	if err != nil {
		return nil, fmt.Errorf("create store client: %w", err)
	}

	var source sync.ChangeSource
	if cfg.UsePolling {
		source = sync.NewPoller(ws.Root, sync.DefaultPollInterval)
	} else {
		source = sync.NewWatcher(ws.Root)
	}

	manager, err := sync.NewManager(&sync.ManagerConfig{
		Root:        ws.Root,
		Source:      source,
		Remote:      sdk,
		JournalPath: ws.JournalPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create sync manager: %w", err)
	}

	return &Client{
		config:     cfg,
		workspace:  ws,
		sdk:        sdk,
		sync:       manager,
		instanceId: instanceId,
	}, nil
}

func (c *Client) Start(ctx context.Context) error {
	slog.Info("client start",
		"root", c.workspace.Root,
		"server", c.config.ServerURL,
		"instance", c.instanceId,
	)

	if err := c.workspace.Setup(); err != nil {
		return err
	}
	defer c.workspace.Unlock()

	// remote inventory seeds the local tree, then a push-only pass repairs
	// whatever the remote is missing, then live sync takes over
	if err := c.seed(ctx); err != nil {
		return fmt.Errorf("seed from remote: %w", err)
	}
	if _, err := c.sync.Reconcile(ctx); err != nil {
		return fmt.Errorf("initial reconcile: %w", err)
	}

	if err := c.sync.Start(ctx); err != nil {
		return fmt.Errorf("start sync: %w", err)
	}

	go c.statusLoop(ctx)

	<-ctx.Done()
	slog.Info("client stopping")

	c.sync.Stop()
	c.sdk.Close()
	slog.Info("client stop")
	return nil
}

// Reconcile runs one on-demand repair pass.
func (c *Client) Reconcile(ctx context.Context) (*sync.ReconcileResult, error) {
	return c.sync.Reconcile(ctx)
}
