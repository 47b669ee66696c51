package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/service/checker"
	"github.com/oshokin/catpoint/internal/service/client"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the server address from config.
	serverAddress string
	// retry keeps repeating failed requests.
	retry bool
	// sensorName is the display name of an added sensor.
	sensorName string
	// sensorType is the type of an added sensor.
	sensorType string
	// pollInterval is the watch polling interval.
	pollInterval time.Duration
	// exitOnAlarm stops watching once the alarm is raised.
	exitOnAlarm bool

	// rootCmd represents the base command of the client.
	rootCmd = &cobra.Command{
		Use:   "catpoint",
		Short: "Control the catpoint security server.",
		Long: `Reads and changes the state of a catpoint security server.

Every command prints the resulting alarm status, arming status and sensors.
The server address is loaded from the configuration file unless --server is given.`,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the current state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, client.Status())
		},
	}

	armCmd = &cobra.Command{
		Use:       "arm home|away",
		Short:     "Arm the system.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"home", "away"},
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseArmingStatus(args[0])
			if err != nil {
				return err
			}

			return run(cmd, client.SetArming(status))
		},
	}

	disarmCmd = &cobra.Command{
		Use:   "disarm",
		Short: "Disarm the system and clear the alarm.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, client.SetArming(domain.ArmingDisarmed))
		},
	}

	sensorCmd = &cobra.Command{
		Use:   "sensor",
		Short: "Manage sensors.",
	}

	sensorAddCmd = &cobra.Command{
		Use:   "add <id>",
		Short: "Register a sensor.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedType, err := domain.ParseSensorType(sensorType)
			if err != nil {
				return err
			}

			sensor := domain.NewSensor(args[0], parsedType)
			if sensorName != "" {
				sensor.Name = sensorName
			}

			return run(cmd, client.AddSensor(sensor))
		},
	}

	sensorRemoveCmd = &cobra.Command{
		Use:   "remove <id>",
		Short: "Unregister a sensor.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, client.RemoveSensor(args[0]))
		},
	}

	sensorActivateCmd = &cobra.Command{
		Use:   "activate <id>",
		Short: "Report a sensor as active.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, client.ChangeSensor(args[0], true))
		},
	}

	sensorDeactivateCmd = &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Report a sensor as inactive.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, client.ChangeSensor(args[0], false))
		},
	}

	scanCmd = &cobra.Command{
		Use:   "scan <image-file>",
		Short: "Send a camera frame for cat detection.",
		Long:  "Sends a jpeg, png, gif, bmp, tiff or webp frame to the server for classification.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, client.Scan(args[0]))
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print the state whenever the alarm or arming status changes.",
		Long: `Polls the server and prints the state on every alarm or arming status change.

With --exit-on-alarm the command exits with a non-zero status once the alarm is raised,
which lets shell scripts react to a break-in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return checker.Run(ctx, &checker.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				PollInterval:  pollInterval,
				ExitOnAlarm:   exitOnAlarm,
				Output:        cmd.OutOrStdout(),
			})
		},
	}
)

// run executes op with graceful shutdown handling.
func run(cmd *cobra.Command, op client.Operation) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return client.Run(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Retry:         retry,
		Output:        cmd.OutOrStdout(),
	}, op)
}

// Execute runs the catpoint CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&serverAddress, "server", "s", "", "server address, overrides the configuration file")
	flags.BoolVarP(&retry, "retry", "r", false, "repeat failed requests until they succeed")

	sensorAddCmd.Flags().StringVarP(&sensorName, "name", "n", "", "display name, defaults to the id")
	sensorAddCmd.Flags().
		StringVarP(&sensorType, "type", "t", domain.SensorTypeDoor.String(), "sensor type: door, window or motion")

	watchCmd.Flags().DurationVarP(&pollInterval, "interval", "i", checker.DefaultPollInterval, "polling interval")
	watchCmd.Flags().BoolVar(&exitOnAlarm, "exit-on-alarm", false, "exit with an error once the alarm is raised")

	sensorCmd.AddCommand(sensorAddCmd, sensorRemoveCmd, sensorActivateCmd, sensorDeactivateCmd)
	rootCmd.AddCommand(statusCmd, armCmd, disarmCmd, sensorCmd, scanCmd, watchCmd)
}
