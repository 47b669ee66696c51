package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/client"
	"github.com/oshokin/catpoint/internal/service/common"
)

// Options controls the checker polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between status checks.
	PollInterval time.Duration
	// ExitOnAlarm stops polling with ErrAlarmRaised once the alarm is raised.
	ExitOnAlarm bool
	// Output receives the state on every change; stdout when nil.
	Output io.Writer
}

// DefaultPollInterval defines the default interval between status checks.
const DefaultPollInterval = 5 * time.Second

// ErrAlarmRaised is returned by Run in ExitOnAlarm mode when the alarm is raised.
var ErrAlarmRaised = errors.New("alarm raised")

// statusReader reads the server state.
type statusReader interface {
	GetStatus(ctx context.Context) (*domain.Snapshot, error)
}

// Run polls the server state and prints it whenever the alarm or arming
// status changes. It returns nil when ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "catpoint-watch")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	c, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = c.Close()
	}()

	logger.InfoKV(ctx, "Polling security state", "server_address", serverAddress)

	return poll(ctx, c, opts)
}

func poll(ctx context.Context, reader statusReader, opts *Options) error {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	var last *domain.Snapshot

	check := func() error {
		snapshot, err := reader.GetStatus(ctx)
		if err != nil {
			logger.ErrorKV(ctx, "Check state failed", "error", err)

			return nil
		}

		if last != nil &&
			last.AlarmStatus == snapshot.AlarmStatus &&
			last.ArmingStatus == snapshot.ArmingStatus {
			return nil
		}

		last = snapshot

		if _, err = fmt.Fprintf(output, "--- %s\n", time.Now().Format(time.RFC3339)); err != nil {
			return err
		}

		if err = client.WriteSnapshot(output, snapshot); err != nil {
			return err
		}

		if opts.ExitOnAlarm && snapshot.AlarmStatus == domain.AlarmActive {
			return ErrAlarmRaised
		}

		return nil
	}

	if err := check(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			if err := check(); err != nil {
				return err
			}
		}
	}
}
