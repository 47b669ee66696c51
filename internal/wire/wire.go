package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Field names used in structpb payloads.
const (
	FieldSensors      = "sensors"
	FieldAlarmStatus  = "alarm_status"
	FieldArmingStatus = "arming_status"
	FieldID           = "id"
	FieldName         = "name"
	FieldType         = "type"
	FieldActive       = "active"
	FieldStatus       = "status"
	FieldHostname     = "hostname"
	FieldUsername     = "username"
)

var (
	// ErrNilPayload is returned when a nil struct is decoded.
	ErrNilPayload = errors.New("payload is empty")
	// ErrDuplicateSensor is returned when a snapshot lists the same sensor ID twice.
	ErrDuplicateSensor = errors.New("duplicate sensor id")
	// errSensorIDRequired is returned when a sensor payload has no ID.
	errSensorIDRequired = errors.New("sensor id is required")
)

// marshalOptions keep unpopulated fields so files stay self-describing.
//
//nolint:gochecknoglobals // Immutable encoder options.
var marshalOptions = protojson.MarshalOptions{
	EmitUnpopulated: true,
}

// SensorToProto converts a sensor into a structpb.Struct.
func SensorToProto(sensor *domain.Sensor) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldID:     structpb.NewStringValue(sensor.ID),
			FieldName:   structpb.NewStringValue(sensor.Name),
			FieldType:   structpb.NewStringValue(sensor.Type.String()),
			FieldActive: structpb.NewBoolValue(sensor.Active),
		},
	}
}

// SensorFromProto converts a structpb.Struct into a sensor.
// Missing type defaults to DOOR and a missing name defaults to the ID.
func SensorFromProto(payload *structpb.Struct) (*domain.Sensor, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}

	fields := payload.GetFields()

	id := fields[FieldID].GetStringValue()
	if id == "" {
		return nil, errSensorIDRequired
	}

	sensorType := domain.SensorTypeDoor

	if raw := fields[FieldType].GetStringValue(); raw != "" {
		parsed, err := domain.ParseSensorType(raw)
		if err != nil {
			return nil, err
		}

		sensorType = parsed
	}

	sensor := domain.NewSensor(id, sensorType)
	sensor.Active = fields[FieldActive].GetBoolValue()

	if name := fields[FieldName].GetStringValue(); name != "" {
		sensor.Name = name
	}

	return sensor, nil
}

// SnapshotToProto converts a snapshot into a structpb.Struct.
func SnapshotToProto(snapshot *domain.Snapshot) *structpb.Struct {
	sensors := make([]*structpb.Value, 0, len(snapshot.Sensors))
	for _, sensor := range snapshot.Sensors {
		sensors = append(sensors, structpb.NewStructValue(SensorToProto(sensor)))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldSensors:      structpb.NewListValue(&structpb.ListValue{Values: sensors}),
			FieldAlarmStatus:  structpb.NewStringValue(snapshot.AlarmStatus.String()),
			FieldArmingStatus: structpb.NewStringValue(snapshot.ArmingStatus.String()),
		},
	}
}

// SnapshotFromProto converts a structpb.Struct into a snapshot.
// Unset statuses fall back to NO_ALARM and DISARMED.
func SnapshotFromProto(payload *structpb.Struct) (*domain.Snapshot, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}

	fields := payload.GetFields()
	snapshot := new(domain.Snapshot)

	if raw := fields[FieldAlarmStatus].GetStringValue(); raw != "" {
		status, err := domain.ParseAlarmStatus(raw)
		if err != nil {
			return nil, err
		}

		snapshot.AlarmStatus = status
	}

	if raw := fields[FieldArmingStatus].GetStringValue(); raw != "" {
		status, err := domain.ParseArmingStatus(raw)
		if err != nil {
			return nil, err
		}

		snapshot.ArmingStatus = status
	}

	seen := make(map[string]struct{})

	for i, value := range fields[FieldSensors].GetListValue().GetValues() {
		sensor, err := SensorFromProto(value.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("sensor #%d: %w", i, err)
		}

		if _, ok := seen[sensor.ID]; ok {
			return nil, fmt.Errorf("sensor #%d: %w: %s", i, ErrDuplicateSensor, sensor.ID)
		}

		seen[sensor.ID] = struct{}{}
		snapshot.Sensors = append(snapshot.Sensors, sensor)
	}

	snapshot.Normalize()

	return snapshot, nil
}

// MarshalSnapshot encodes a snapshot as protojson.
func MarshalSnapshot(snapshot *domain.Snapshot) ([]byte, error) {
	data, err := marshalOptions.Marshal(SnapshotToProto(snapshot))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return data, nil
}

// UnmarshalSnapshot decodes a protojson snapshot.
func UnmarshalSnapshot(data []byte) (*domain.Snapshot, error) {
	var payload structpb.Struct
	if err := protojson.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return SnapshotFromProto(&payload)
}

// MarshalSensor encodes a single sensor as protojson.
func MarshalSensor(sensor *domain.Sensor) ([]byte, error) {
	data, err := marshalOptions.Marshal(SensorToProto(sensor))
	if err != nil {
		return nil, fmt.Errorf("encode sensor: %w", err)
	}

	return data, nil
}

// UnmarshalSensor decodes a protojson sensor.
func UnmarshalSensor(data []byte) (*domain.Sensor, error) {
	var payload structpb.Struct
	if err := protojson.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode sensor: %w", err)
	}

	return SensorFromProto(&payload)
}

// ArmingRequest carries a requested arming status and the actor who asked for it.
type ArmingRequest struct {
	// Status is the requested arming status.
	Status domain.ArmingStatus
	// Actor is who requested the change, nil when not provided.
	Actor *domain.Actor
}

// ArmingRequestToProto converts an arming request into a structpb.Struct.
func ArmingRequestToProto(request *ArmingRequest) *structpb.Struct {
	fields := map[string]*structpb.Value{
		FieldStatus: structpb.NewStringValue(request.Status.String()),
	}

	if request.Actor != nil {
		fields[FieldHostname] = structpb.NewStringValue(request.Actor.Hostname)
		fields[FieldUsername] = structpb.NewStringValue(request.Actor.Username)
	}

	return &structpb.Struct{Fields: fields}
}

// ArmingRequestFromProto converts a structpb.Struct into an arming request.
func ArmingRequestFromProto(payload *structpb.Struct) (*ArmingRequest, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}

	fields := payload.GetFields()

	status, err := domain.ParseArmingStatus(fields[FieldStatus].GetStringValue())
	if err != nil {
		return nil, err
	}

	request := &ArmingRequest{Status: status}

	hostname := fields[FieldHostname].GetStringValue()
	username := fields[FieldUsername].GetStringValue()

	if hostname != "" || username != "" {
		request.Actor = &domain.Actor{
			Hostname: hostname,
			Username: username,
		}
	}

	return request, nil
}

// SensorChange is a request to change the activation of a tracked sensor.
type SensorChange struct {
	// ID identifies the sensor.
	ID string `json:"id"`
	// Active is the requested activation state.
	Active bool `json:"active"`
}

// SensorChangeToProto converts a sensor change into a structpb.Struct.
func SensorChangeToProto(change *SensorChange) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldID:     structpb.NewStringValue(change.ID),
			FieldActive: structpb.NewBoolValue(change.Active),
		},
	}
}

// SensorChangeFromProto converts a structpb.Struct into a sensor change.
func SensorChangeFromProto(payload *structpb.Struct) (*SensorChange, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}

	fields := payload.GetFields()

	change := &SensorChange{
		ID:     fields[FieldID].GetStringValue(),
		Active: fields[FieldActive].GetBoolValue(),
	}

	if change.ID == "" {
		return nil, errSensorIDRequired
	}

	return change, nil
}
