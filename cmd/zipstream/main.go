package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/zipstream/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "zipstream",
	Short:   "Stream directories as zip archives over HTTP",
	Long: `zipstream serves every directory under a root as a zip archive that is
compressed on the fly and sent to the client chunk by chunk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, merged left to right (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("root", "", "directory whose subdirectories are served (default: test_photos, env: PHOTOS_DIR)")
	rootCmd.PersistentFlags().String("archive-name", "", "download file name (default: photos.zip, env: ARCHIVE_NAME)")
	rootCmd.PersistentFlags().Duration("network-delay", 0, "delay between chunks (env: NETWORK_DELAY, bare numbers are seconds)")
	rootCmd.PersistentFlags().Int("chunk-size", 0, "bytes read per chunk (default: 102400)")
	rootCmd.PersistentFlags().String("compressor", "", "compressor backend: exec, native (default: exec)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default: info)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json (default: text)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
