package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quickscribe/internal/config"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the relay configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(opts), newConfigShowCommand(opts))
	return cmd
}

func newConfigInitCommand(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, exists, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if exists {
				cmd.Printf("config file: %s\n", path)
			} else {
				cmd.Printf("config file: none (defaults; would read %s)\n", path)
			}
			cmd.Printf("api bind:        %s\n", cfg.Paths.APIBind)
			cmd.Printf("data dir:        %s\n", cfg.Paths.DataDir)
			cmd.Printf("log dir:         %s\n", cfg.Paths.LogDir)
			cmd.Printf("storage backend: %s\n", cfg.Storage.Backend)
			cmd.Printf("storage bucket:  %s\n", cfg.Storage.Bucket)
			cmd.Printf("worker url:      %s\n", cfg.Worker.URL)
			cmd.Printf("callback url:    %s\n", cfg.Worker.CallbackURL)
			cmd.Printf("retention:       %s\n", cfg.Retention())
			return nil
		},
	}
}
