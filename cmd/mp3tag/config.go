package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mp3tag/internal/config"
	"mp3tag/internal/logger"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
		// Config commands must work with a missing or invalid file.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log = logger.NewWithWriter(cmd.OutOrStdout(), a.verbose)
			return nil
		},
	}
	cmd.AddCommand(newConfigInitCommand(a), newConfigShowCommand(a), newConfigPathCommand(a))
	return cmd
}

func newConfigInitCommand(a *app) *cobra.Command {
	var (
		clientID     string
		clientSecret string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file, optionally with Spotify credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.GetDefaultConfigPath()
			}

			cfg := config.DefaultConfig()
			if _, err := os.Stat(path); err == nil {
				if !force && clientID == "" && clientSecret == "" {
					a.log.Info("Config file already exists at: %s", path)
					a.log.Info("Pass --force to recreate it.")
					return nil
				}
				if !force {
					// Only update the credentials of the existing file.
					if cfg, err = config.LoadConfigFile(path); err != nil {
						return err
					}
				}
			}

			if clientID != "" {
				cfg.Spotify.ClientID = clientID
			}
			if clientSecret != "" {
				cfg.Spotify.ClientSecret = clientSecret
			}

			if err := config.SaveConfigFile(cfg, path); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, colorSuccess.Sprintf("Saved config file at: %s", path))
			if !cfg.Spotify.Configured() {
				fmt.Fprintln(out, "\nSpotify searches need client credentials from https://developer.spotify.com/dashboard:")
				fmt.Fprintln(out, "  mp3tag config init --client-id ID --client-secret SECRET")
				fmt.Fprintf(out, "or set %s_SPOTIFY_CLIENT_ID and %s_SPOTIFY_CLIENT_SECRET.\n", config.EnvPrefix, config.EnvPrefix)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "Spotify client ID")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "Spotify client secret")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigFile(a.configPath)
			if err != nil {
				return err
			}
			if err := config.ApplyEnv(&cfg); err != nil {
				return err
			}

			cfg.Spotify.ClientSecret = mask(cfg.Spotify.ClientSecret)
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			if err == nil {
				if verr := cfg.Validate(); verr != nil {
					a.log.Warn("%v", verr)
				}
			}
			return err
		},
	}
}

func newConfigPathCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use, or where init would create one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.resolvedConfigPath()
			if path == "" {
				path = config.GetDefaultConfigPath() + " (not created yet)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
