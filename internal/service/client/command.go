package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
)

// Options configures the client connection and output.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Retry keeps repeating a failed request until it succeeds or ctx is done.
	Retry bool

	// Output receives the resulting state; stdout when nil.
	Output io.Writer
}

// Operation performs one request on behalf of actor.
type Operation func(ctx context.Context, client *common.Client, actor *domain.Actor) (*domain.Snapshot, error)

// defaultRetryInterval defines retry delay when a request fails.
const defaultRetryInterval = 1 * time.Second

// Run connects to the server, performs op and prints the resulting state.
func Run(ctx context.Context, opts *Options, op Operation) error {
	ctx = logger.WithName(ctx, "catpoint")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Connected to security server", "server_address", serverAddress)

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	snapshot, err := execute(ctx, client, actor, op, opts.Retry, defaultRetryInterval)
	if err != nil {
		return err
	}

	return WriteSnapshot(output, snapshot)
}

// execute runs op once, or until it succeeds when retry is set. Errors the
// server reports as permanent end the retry loop at once.
func execute(
	ctx context.Context,
	client *common.Client,
	actor *domain.Actor,
	op Operation,
	retry bool,
	interval time.Duration,
) (*domain.Snapshot, error) {
	snapshot, err := op(ctx, client, actor)
	if err == nil || !retry || permanent(err) {
		return snapshot, err
	}

	logger.ErrorKV(ctx, "Request failed, retrying", "error", err)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			snapshot, err = op(ctx, client, actor)
			if err == nil {
				return snapshot, nil
			}

			if permanent(err) {
				return nil, err
			}

			logger.ErrorKV(ctx, "Request failed, retrying", "error", err)
		}
	}
}

// permanent reports whether err carries a gRPC code that a retry cannot change.
func permanent(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument,
		codes.NotFound,
		codes.AlreadyExists,
		codes.PermissionDenied,
		codes.FailedPrecondition,
		codes.OutOfRange,
		codes.Unimplemented,
		codes.Unauthenticated:
		return true
	default:
		return false
	}
}

// Status reads the current state.
func Status() Operation {
	return func(ctx context.Context, client *common.Client, _ *domain.Actor) (*domain.Snapshot, error) {
		return client.GetStatus(ctx)
	}
}

// SetArming arms or disarms the system.
func SetArming(status domain.ArmingStatus) Operation {
	return func(ctx context.Context, client *common.Client, actor *domain.Actor) (*domain.Snapshot, error) {
		return client.SetArmingStatus(ctx, actor, status)
	}
}

// AddSensor registers a sensor.
func AddSensor(sensor *domain.Sensor) Operation {
	return func(ctx context.Context, client *common.Client, _ *domain.Actor) (*domain.Snapshot, error) {
		return client.AddSensor(ctx, sensor)
	}
}

// RemoveSensor unregisters a sensor.
func RemoveSensor(id string) Operation {
	return func(ctx context.Context, client *common.Client, _ *domain.Actor) (*domain.Snapshot, error) {
		return client.RemoveSensor(ctx, id)
	}
}

// ChangeSensor activates or deactivates a sensor.
func ChangeSensor(id string, active bool) Operation {
	return func(ctx context.Context, client *common.Client, _ *domain.Actor) (*domain.Snapshot, error) {
		return client.ChangeSensor(ctx, id, active)
	}
}

// Scan sends an image file for classification.
func Scan(path string) Operation {
	return func(ctx context.Context, client *common.Client, _ *domain.Actor) (*domain.Snapshot, error) {
		return client.ProcessImageFile(ctx, path)
	}
}

// WriteSnapshot prints the state as an aligned table.
func WriteSnapshot(w io.Writer, snapshot *domain.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Alarm:\t%s\t%s\n", snapshot.AlarmStatus, snapshot.AlarmStatus.Description())
	fmt.Fprintf(tw, "Arming:\t%s\t%s\n", snapshot.ArmingStatus, snapshot.ArmingStatus.Description())

	if len(snapshot.Sensors) == 0 {
		fmt.Fprintln(tw, "Sensors:\tnone\t")

		return tw.Flush()
	}

	fmt.Fprintln(tw, "Sensors:\t\t")

	for _, sensor := range snapshot.Sensors {
		state := "inactive"
		if sensor.Active {
			state = "active"
		}

		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", sensor.ID, sensor.Type, state, sensor.Name)
	}

	return tw.Flush()
}
