package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "ringkeepd",
		Short:   "ringkeepd runs one membership/failure-detection cluster member",
		Version: version,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the node, join the cluster, and open the interactive console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	serve.Flags().StringVar(&configPath, "config", "config/ringkeepd.yaml", "path to configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}

	cmd.AddCommand(serve, versionCmd)
	cmd.SetContext(context.Background())
	return cmd
}
