package model

import (
	"strconv"
	"time"
)

// NodeStatus is the liveness state of a cluster peer.
type NodeStatus string

const (
	NodeUp      NodeStatus = "up"
	NodeDown    NodeStatus = "down"
	NodeUnknown NodeStatus = "unknown"
)

// ClusterNode is one replicating registry process known to this node.
// Mutated only by the cluster manager.
type ClusterNode struct {
	NodeID        string            `json:"node_id"`
	Address       string            `json:"address"`
	Port          int               `json:"port"`
	Status        NodeStatus        `json:"status"`
	LastHeartbeat time.Time         `json:"last_heartbeat"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// BaseURL returns the HTTP base URL used to reach this peer.
func (n *ClusterNode) BaseURL() string {
	return "http://" + n.Address + ":" + strconv.Itoa(n.Port)
}
