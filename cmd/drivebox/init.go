package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openmirror/drivebox/internal/client/config"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var dataDir string
	var serverURL string
	var usePolling bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the Drivebox config file",
		Run: func(cmd *cobra.Command, args []string) {
			if cfg, err := config.Load(config.DefaultConfigPath); err == nil {
				fmt.Println("Drivebox already initialized")
				printConfig(cfg)
				os.Exit(0)
			}

			cfg := &config.Config{
				DataDir:    dataDir,
				ServerURL:  serverURL,
				UsePolling: usePolling,
			}
			if err := cfg.Validate(); err != nil {
				fmt.Printf("%s: %s\n", red("ERROR"), err)
				os.Exit(1)
			}
			if err := cfg.Save(config.DefaultConfigPath); err != nil {
				fmt.Printf("%s: %s\n", red("ERROR"), err)
				os.Exit(1)
			}

			fmt.Println("Drivebox initialized")
			printConfig(cfg)
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&dataDir, "datadir", "d", config.DefaultDataDir, "Synced data directory")
	cmd.Flags().StringVarP(&serverURL, "server", "s", config.DefaultServerURL, "Drivebox server URL")
	cmd.Flags().BoolVar(&usePolling, "poll", false, "Use polling instead of filesystem notifications")

	return cmd
}

func printConfig(cfg *config.Config) {
	fmt.Printf("Config Path: %s\n", green(cfg.Path))
	fmt.Printf("Data Dir:    %s\n", cyan(cfg.DataDir))
	fmt.Printf("Server:      %s\n", cyan(cfg.ServerURL))
}
