package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quickscribe/internal/config"
)

type globalOptions struct {
	configPath string
	apiURL     string
	token      string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "quickscribe",
		Short:         "Control the quickscribe transcription relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "relay API base URL (default from config)")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "API bearer token")

	root.AddCommand(
		newStatusCommand(opts),
		newJobsCommand(opts),
		newSubmitCommand(opts),
		newWatchCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// resolveClient builds an API client from flags, falling back to the
// config file for the bind address and token.
func (o *globalOptions) resolveClient() (*apiClient, error) {
	baseURL := o.apiURL
	token := o.token

	if baseURL == "" || token == "" {
		cfg, _, _, err := config.Load(o.configPath)
		if err != nil {
			if baseURL == "" {
				return nil, fmt.Errorf("resolve API address: %w (or pass --api-url)", err)
			}
		} else {
			if baseURL == "" {
				baseURL = "http://" + cfg.Paths.APIBind
			}
			if token == "" {
				token = cfg.Paths.APIToken
			}
		}
	}
	return newAPIClient(baseURL, token), nil
}
