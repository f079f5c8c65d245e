package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openmirror/drivebox/internal/server"
	"github.com/openmirror/drivebox/internal/version"
)

func main() {
	var addr string
	var storageDir string
	var certFile string
	var keyFile string

	_ = godotenv.Load()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rootCmd = &cobra.Command{
		Use:     "driveboxd",
		Short:   "Drivebox storage server",
		Version: version.Detailed(),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := &server.Config{
				Addr:       addr,
				StorageDir: storageDir,
				CertFile:   certFile,
				KeyFile:    keyFile,
			}
			s, err := server.New(config)
			if err != nil {
				return err
			}
			defer slog.Info("Bye!")
			return s.Start(cmd.Context())
		},
	}

	rootCmd.Flags().StringVarP(&addr, "bind", "b", server.DefaultAddr, "Address to bind the server")
	rootCmd.Flags().StringVarP(&storageDir, "storage", "s", server.DefaultStorageDir, "Directory backing the file store")
	rootCmd.Flags().StringVarP(&certFile, "cert", "c", "", "Path to the certificate file")
	rootCmd.Flags().StringVarP(&keyFile, "key", "k", "", "Path to the key file")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
