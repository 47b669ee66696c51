package security

import (
	"context"
	"errors"
	"image"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/catpoint/internal/classifier"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	engine "github.com/oshokin/catpoint/internal/service/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// Service abstracts the engine operations the transport layer depends on.
type Service interface {
	Status(ctx context.Context) (*domain.Snapshot, error)
	AddSensor(ctx context.Context, sensor *domain.Sensor) error
	RemoveSensor(ctx context.Context, id string) error
	ChangeSensor(ctx context.Context, id string, active bool) error
	HandleArmingChange(ctx context.Context, status domain.ArmingStatus) error
	HandleImageScan(ctx context.Context, img image.Image) error
}

// Server implements SecurityServiceServer on top of a Service.
type Server struct {
	// service provides the engine operations.
	service Service
}

var _ SecurityServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetStatus returns the current state snapshot.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.snapshot(ctx)
}

// SetArmingStatus arms or disarms the system.
func (s *Server) SetArmingStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	request, err := wire.ArmingRequestFromProto(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if request.Actor != nil {
		ctx = logger.WithKV(ctx, "actor", request.Actor.String())
	}

	if err = s.service.HandleArmingChange(ctx, request.Status); err != nil {
		return nil, toStatus(ctx, err)
	}

	return s.snapshot(ctx)
}

// ChangeSensor activates or deactivates a tracked sensor.
func (s *Server) ChangeSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	change, err := wire.SensorChangeFromProto(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.ChangeSensor(ctx, change.ID, change.Active); err != nil {
		return nil, toStatus(ctx, err)
	}

	return s.snapshot(ctx)
}

// AddSensor starts tracking a sensor.
func (s *Server) AddSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := wire.SensorFromProto(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.AddSensor(ctx, sensor); err != nil {
		return nil, toStatus(ctx, err)
	}

	return s.snapshot(ctx)
}

// RemoveSensor stops tracking a sensor.
func (s *Server) RemoveSensor(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "sensor id is required")
	}

	if err := s.service.RemoveSensor(ctx, req.GetValue()); err != nil {
		return nil, toStatus(ctx, err)
	}

	return s.snapshot(ctx)
}

// ProcessImage decodes a camera frame and runs it through the classifier.
func (s *Server) ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	img, format, err := classifier.DecodeBytes(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ctx = logger.WithKV(ctx, "format", format)

	if err = s.service.HandleImageScan(ctx, img); err != nil {
		return nil, toStatus(ctx, err)
	}

	return s.snapshot(ctx)
}

func (s *Server) snapshot(ctx context.Context) (*structpb.Struct, error) {
	snapshot, err := s.service.Status(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return wire.SnapshotToProto(snapshot), nil
}

// toStatus maps engine errors to gRPC status codes. Internal failures are
// logged and reported without details.
func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrUnknownSensor):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrClassifier):
		return status.Error(codes.Unavailable, err.Error())
	default:
		logger.ErrorKV(ctx, "Security service failed", "error", err)

		return status.Error(codes.Internal, "unable to process request")
	}
}
