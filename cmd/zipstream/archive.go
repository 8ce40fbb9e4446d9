package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagarc03/zipstream/config"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Stream one archive to a file or stdout",
	Long: `Stream the directory <id> under the root as a zip archive, exactly as the
server would send it, including the configured network delay.

Examples:
  zipstream archive holiday -o holiday.zip
  zipstream archive holiday > holiday.zip
  zipstream archive --list`,
	Args: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runArchive,
}

func init() {
	archiveCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	archiveCmd.Flags().Bool("list", false, "list archive identifiers instead")

	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, store, closeService, err := openService(cfg)
	if err != nil {
		return err
	}
	defer closeService()

	if list, _ := cmd.Flags().GetBool("list"); list {
		ids, err := store.List(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}

	id := args[0]
	transfer, err := service.Open(ctx, id)
	if err != nil {
		return fmt.Errorf("archive '%s': %w", id, err)
	}
	defer func() { _ = transfer.Close() }()

	var out io.Writer = cmd.OutOrStdout()
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	stats, err := transfer.Stream(ctx, out)
	if err != nil {
		if outputPath != "" {
			slog.Warn("removing incomplete archive", "path", outputPath)
			_ = os.Remove(outputPath)
		}
		return fmt.Errorf("archive '%s': %w", id, err)
	}

	slog.Info("archive written",
		"archive_id", id,
		"chunks", stats.Chunks,
		"bytes", stats.Bytes,
		"duration", stats.Duration,
	)
	return nil
}
