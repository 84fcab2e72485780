package model

import "time"

// ReplicationKind tags the variant carried by a ReplicationEvent.
type ReplicationKind string

const (
	ReplicationRegister   ReplicationKind = "register"
	ReplicationHeartbeat  ReplicationKind = "heartbeat"
	ReplicationUnregister ReplicationKind = "unregister"
)

// ReplicationEvent is an immutable, once-queued unit of replicated work.
// Exactly one of Instances/Keys is populated, per Kind.
type ReplicationEvent struct {
	Kind      ReplicationKind `json:"kind"`
	Instances []*Instance     `json:"instances,omitempty"`
	Keys      []InstanceKey   `json:"keys,omitempty"`
	OriginNodeID string       `json:"origin_node_id"`
	CreatedAt time.Time       `json:"created_at"`
}
