package model

// RegisterRequest/Response — POST /api/registry/register.
type RegisterRequest struct {
	Instances []*Instance `json:"instances" validate:"required,min=1,dive"`
}

type RegisterResponse struct {
	Status          ResponseStatus `json:"status"`
	FailedInstances []*Instance    `json:"failed_instances,omitempty"`
}

// HeartbeatRequest/Response — POST /api/registry/heartbeat.
type HeartbeatRequest struct {
	InstanceKeys []InstanceKey `json:"instance_keys" validate:"required,min=1"`
}

type HeartbeatResponse struct {
	Status             ResponseStatus `json:"status"`
	FailedInstanceKeys []InstanceKey  `json:"failed_instance_keys,omitempty"`
}

// UnregisterRequest/Response — POST /api/registry/unregister.
type UnregisterRequest struct {
	InstanceKeys []InstanceKey `json:"instance_keys" validate:"required,min=1"`
}

type UnregisterResponse struct {
	Status ResponseStatus `json:"status"`
}

// DiscoveryConfig carries query-scoped filter context for a discovery call.
type DiscoveryConfig struct {
	ServiceID     string            `json:"service_id" validate:"required"`
	RegionID      string            `json:"region_id"`
	ZoneID        string            `json:"zone_id"`
	DiscoveryData map[string]string `json:"discovery_data,omitempty"`
}

// GetServiceRequest/Response — POST /api/discovery/service.
type GetServiceRequest struct {
	DiscoveryConfig DiscoveryConfig `json:"discovery_config" validate:"required"`
}

type GetServiceResponse struct {
	Status  ResponseStatus `json:"status"`
	Service *Service       `json:"service,omitempty"`
}

// GetServicesResponse — GET /api/discovery/services.
type GetServicesResponse struct {
	Status   ResponseStatus `json:"status"`
	Services []*Service     `json:"services"`
}

// GetServicesDeltaRequest/Response — POST /api/discovery/services/delta.
type GetServicesDeltaRequest struct {
	RegionID  string `json:"region_id"`
	ZoneID    string `json:"zone_id"`
	SinceTsMs int64  `json:"since_ts_ms"`
}

type GetServicesDeltaResponse struct {
	Status      ResponseStatus `json:"status"`
	Services    []*Service     `json:"services"`
	CurrentTsMs int64          `json:"current_ts_ms"`
}

// ReplicateRegisterRequest/Response — POST /replicate/register.
type ReplicateRegisterRequest struct {
	OriginNodeID string      `json:"origin_node_id"`
	Instances    []*Instance `json:"instances"`
}

type ReplicateRegisterResponse struct {
	Status ResponseStatus `json:"status"`
}

// ReplicateHeartbeatRequest/Response — POST /replicate/heartbeat.
type ReplicateHeartbeatRequest struct {
	OriginNodeID string        `json:"origin_node_id"`
	InstanceKeys []InstanceKey `json:"instance_keys"`
}

type ReplicateHeartbeatResponse struct {
	Status ResponseStatus `json:"status"`
}

// ReplicateUnregisterRequest/Response — POST /replicate/unregister.
type ReplicateUnregisterRequest struct {
	OriginNodeID string        `json:"origin_node_id"`
	InstanceKeys []InstanceKey `json:"instance_keys"`
}

type ReplicateUnregisterResponse struct {
	Status ResponseStatus `json:"status"`
}

// BatchKind selects which sub-request shape a batch replication call carries.
type BatchKind string

const (
	BatchRegister   BatchKind = "register"
	BatchHeartbeat  BatchKind = "heartbeat"
	BatchUnregister BatchKind = "unregister"
)

// BatchRequest/Response — POST /replicate/batch/{kind}.
type BatchRequest struct {
	OriginNodeID string        `json:"origin_node_id"`
	Instances    []*Instance   `json:"instances,omitempty"`
	InstanceKeys []InstanceKey `json:"instance_keys,omitempty"`
}

type BatchResponse struct {
	Status ResponseStatus `json:"status"`
}

// GetAllServicesResponse — GET /replicate/services.
type GetAllServicesResponse struct {
	Status   ResponseStatus `json:"status"`
	Services []*Service     `json:"services"`
}

// SyncFullDataRequest/Response — POST /replicate/sync-full-data.
type SyncFullDataRequest struct {
	RequestingNodeID string `json:"requesting_node_id"`
}

type SyncFullDataResponse struct {
	Status      ResponseStatus `json:"status"`
	Services    []*Service     `json:"services"`
	CurrentTsMs int64          `json:"current_ts_ms"`
}

// ServicesDeltaRequest/Response — POST /replicate/delta.
type ServicesDeltaRequest struct {
	SinceTimestampMs int64 `json:"since_timestamp_ms"`
}

type ServicesDeltaResponse struct {
	Status      ResponseStatus `json:"status"`
	Services    []*Service     `json:"services"`
	CurrentTsMs int64          `json:"current_ts_ms"`
}
