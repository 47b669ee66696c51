//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/classifier"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// Client wraps the gRPC SecurityService client with convenience helpers.
// Every call returns the server state after the operation.
type Client struct {
	// conn is the underlying gRPC connection to the security server.
	conn *grpc.ClientConn
	// api is the SecurityService client interface.
	api api.SecurityServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errSensorRequired is returned when a sensor is not provided.
	errSensorRequired = errors.New("sensor must be provided")
)

// Dial establishes a gRPC connection to the security server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial security server: %w", err)
	}

	client := NewClient(api.NewSecurityServiceClient(conn), opts...)
	client.conn = conn

	return client, nil
}

// NewClient wraps an existing SecurityService client.
func NewClient(securityClient api.SecurityServiceClient, opts ...Option) *Client {
	client := &Client{
		api:         securityClient,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the current state.
func (c *Client) GetStatus(ctx context.Context) (*domain.Snapshot, error) {
	return c.call(ctx, "get status", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.GetStatus(ctx, new(emptypb.Empty))
	})
}

// SetArmingStatus changes the arming status on behalf of actor.
func (c *Client) SetArmingStatus(
	ctx context.Context,
	actor *domain.Actor,
	status domain.ArmingStatus,
) (*domain.Snapshot, error) {
	request := wire.ArmingRequestToProto(&wire.ArmingRequest{
		Status: status,
		Actor:  actor,
	})

	return c.call(ctx, "set arming status", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.SetArmingStatus(ctx, request)
	})
}

// ChangeSensor activates or deactivates a tracked sensor.
func (c *Client) ChangeSensor(ctx context.Context, id string, active bool) (*domain.Snapshot, error) {
	request := wire.SensorChangeToProto(&wire.SensorChange{
		ID:     id,
		Active: active,
	})

	return c.call(ctx, "change sensor", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.ChangeSensor(ctx, request)
	})
}

// AddSensor registers a sensor.
func (c *Client) AddSensor(ctx context.Context, sensor *domain.Sensor) (*domain.Snapshot, error) {
	if sensor == nil {
		return nil, errSensorRequired
	}

	request := wire.SensorToProto(sensor)

	return c.call(ctx, "add sensor", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.AddSensor(ctx, request)
	})
}

// RemoveSensor unregisters a sensor.
func (c *Client) RemoveSensor(ctx context.Context, id string) (*domain.Snapshot, error) {
	return c.call(ctx, "remove sensor", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.RemoveSensor(ctx, wrapperspb.String(id))
	})
}

// ProcessImage sends an encoded camera frame for classification.
func (c *Client) ProcessImage(ctx context.Context, data []byte) (*domain.Snapshot, error) {
	if len(data) > classifier.MaxImageSize {
		return nil, classifier.ErrImageTooLarge
	}

	return c.call(ctx, "process image", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.ProcessImage(ctx, wrapperspb.Bytes(data))
	})
}

// ProcessImageFile reads a frame from disk and sends it for classification.
func (c *Client) ProcessImageFile(ctx context.Context, path string) (*domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image file: %w", err)
	}

	return c.ProcessImage(ctx, data)
}

// call runs one RPC under the call timeout and decodes the snapshot it returns.
func (c *Client) call(
	ctx context.Context,
	operation string,
	rpc func(ctx context.Context) (*structpb.Struct, error),
) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := rpc(callCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	snapshot, err := wire.SnapshotFromProto(response)
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", operation, err)
	}

	return snapshot, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
