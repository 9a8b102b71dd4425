package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"recagent/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configTarget(targetPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set remote.base_url (or export RECAGENT_API_URL) before running recagent run.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func configTarget(flagValue string) (string, error) {
	target := strings.TrimSpace(flagValue)
	if target == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return defaultPath, nil
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return expanded, nil
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			flagValue, _ := cmd.Flags().GetString("config")
			cfg, path, exists, err := config.Load(strings.TrimSpace(flagValue))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			rows := [][]string{
				{"Control service", cfg.Remote.BaseURL},
				{"Output directory", cfg.Paths.OutputDir},
				{"State directory", cfg.Paths.StateDir},
				{"Encoder", cfg.Encoder.Binary},
				{"Screen input", cfg.Encoder.ScreenFormat + " " + cfg.Encoder.ScreenInput},
				{"Audio input", cfg.Encoder.AudioFormat},
				{"Poll interval", cfg.PollInterval().String()},
				{"Upload completed", yesNo(cfg.Remote.UploadCompleted)},
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, rows, nil))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
