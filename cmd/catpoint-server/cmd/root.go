package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/server"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// allowMultiple skips the single-instance check.
	allowMultiple bool
	// restoreKey selects the snapshot to restore.
	restoreKey string

	// rootCmd represents the base command for running the gRPC server.
	rootCmd = &cobra.Command{
		Use:   "catpoint-server [listen-address]",
		Short: "Run the catpoint security server.",
		Long: `Starts the gRPC security server that owns the alarm decision engine.

Sensor changes, arming requests and camera frames are accepted over gRPC and,
when a broker is configured, sensor events over MQTT. Status changes are
published to MQTT and exported as Prometheus metrics when enabled.
Only the port from ServerAddress config is used for listening (e.g., :8080).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				AllowMultiple: allowMultiple,
			})
		},
	}

	// backupCmd uploads the stored state to S3.
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Upload the stored state to the configured S3 bucket.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.RunBackup(cmd.Context(), &server.BackupOptions{
				ConfigPath: configPath,
			})
		},
	}

	// restoreCmd replaces the stored state with a snapshot from S3.
	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Restore the stored state from the configured S3 bucket.",
		Long: `Downloads a snapshot from the configured S3 bucket and writes it into storage.

The latest snapshot is used unless --key is given. Stop the server first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.RunRestore(cmd.Context(), &server.BackupOptions{
				ConfigPath: configPath,
				Key:        restoreKey,
			})
		},
	}
)

// Execute runs the catpoint-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the single-instance check")

	restoreCmd.Flags().StringVarP(&restoreKey, "key", "k", "", "object key of the snapshot to restore")

	rootCmd.AddCommand(backupCmd, restoreCmd)
}
