// Package auxiliary implements the persisted, loaded-at-startup
// configuration the core registry treats as read-mostly lookups: canary
// whitelists, route rules, and zone/instance/server pull-in/pull-out
// operations. Store is the pgx-backed persistence collaborator; the
// per-kind managers in this package hold the in-process concurrent maps the
// filter chain actually reads from.
package auxiliary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mydotey/artemis/pkg/model"
)

// Store provides CRUD persistence for the four auxiliary record kinds over
// one pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- CanaryConfig ---

func (s *Store) LoadCanaryConfigs(ctx context.Context) ([]model.CanaryConfig, error) {
	rows, err := s.pool.Query(ctx, `SELECT service_id, enabled, ip_whitelist, updated_at FROM artemis_canary_config`)
	if err != nil {
		return nil, fmt.Errorf("querying canary configs: %w", err)
	}
	defer rows.Close()

	var out []model.CanaryConfig
	for rows.Next() {
		var c model.CanaryConfig
		if err := rows.Scan(&c.ServiceID, &c.Enabled, &c.IPWhitelist, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning canary config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCanaryConfig(ctx context.Context, c model.CanaryConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO artemis_canary_config (service_id, enabled, ip_whitelist, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (service_id) DO UPDATE SET enabled = $2, ip_whitelist = $3, updated_at = $4`,
		c.ServiceID, c.Enabled, c.IPWhitelist, time.Now())
	if err != nil {
		return fmt.Errorf("upserting canary config: %w", err)
	}
	return nil
}

func (s *Store) DeleteCanaryConfig(ctx context.Context, serviceID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM artemis_canary_config WHERE service_id = $1`, serviceID)
	if err != nil {
		return fmt.Errorf("deleting canary config: %w", err)
	}
	return nil
}

// --- RouteRule ---

func (s *Store) LoadRouteRules(ctx context.Context) ([]model.RouteRule, error) {
	rows, err := s.pool.Query(ctx, `SELECT service_id, rule_id, status, strategy, groups, updated_at FROM artemis_route_rule`)
	if err != nil {
		return nil, fmt.Errorf("querying route rules: %w", err)
	}
	defer rows.Close()

	var out []model.RouteRule
	for rows.Next() {
		var r model.RouteRule
		var groupsJSON []byte
		if err := rows.Scan(&r.ServiceID, &r.RuleID, &r.Status, &r.Strategy, &groupsJSON, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning route rule: %w", err)
		}
		if err := json.Unmarshal(groupsJSON, &r.Groups); err != nil {
			return nil, fmt.Errorf("unmarshaling route rule groups: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpsertRouteRule(ctx context.Context, r model.RouteRule) error {
	groupsJSON, err := json.Marshal(r.Groups)
	if err != nil {
		return fmt.Errorf("marshaling route rule groups: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO artemis_route_rule (service_id, rule_id, status, strategy, groups, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (service_id, rule_id) DO UPDATE SET status = $3, strategy = $4, groups = $5, updated_at = $6`,
		r.ServiceID, r.RuleID, r.Status, r.Strategy, groupsJSON, time.Now())
	if err != nil {
		return fmt.Errorf("upserting route rule: %w", err)
	}
	return nil
}

func (s *Store) DeleteRouteRule(ctx context.Context, serviceID, ruleID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM artemis_route_rule WHERE service_id = $1 AND rule_id = $2`, serviceID, ruleID)
	if err != nil {
		return fmt.Errorf("deleting route rule: %w", err)
	}
	return nil
}

// --- ZoneOperationRecord ---

func (s *Store) LoadZoneOperations(ctx context.Context) ([]model.ZoneOperationRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT region_id, zone_id, operation, updated_at FROM artemis_zone_operation`)
	if err != nil {
		return nil, fmt.Errorf("querying zone operations: %w", err)
	}
	defer rows.Close()

	var out []model.ZoneOperationRecord
	for rows.Next() {
		var z model.ZoneOperationRecord
		if err := rows.Scan(&z.RegionID, &z.ZoneID, &z.Operation, &z.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning zone operation: %w", err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

func (s *Store) UpsertZoneOperation(ctx context.Context, z model.ZoneOperationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO artemis_zone_operation (region_id, zone_id, operation, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (region_id, zone_id) DO UPDATE SET operation = $3, updated_at = $4`,
		z.RegionID, z.ZoneID, z.Operation, time.Now())
	if err != nil {
		return fmt.Errorf("upserting zone operation: %w", err)
	}
	return nil
}

func (s *Store) DeleteZoneOperation(ctx context.Context, regionID, zoneID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM artemis_zone_operation WHERE region_id = $1 AND zone_id = $2`, regionID, zoneID)
	if err != nil {
		return fmt.Errorf("deleting zone operation: %w", err)
	}
	return nil
}

// --- InstanceOperationRecord / ServerOperationRecord ---

func (s *Store) LoadInstanceOperations(ctx context.Context) ([]model.InstanceOperationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT region_id, zone_id, service_id, group_id, instance_id, operation, updated_at
		FROM artemis_instance_operation`)
	if err != nil {
		return nil, fmt.Errorf("querying instance operations: %w", err)
	}
	defer rows.Close()

	var out []model.InstanceOperationRecord
	for rows.Next() {
		var rec model.InstanceOperationRecord
		if err := rows.Scan(&rec.Key.RegionID, &rec.Key.ZoneID, &rec.Key.ServiceID, &rec.Key.GroupID, &rec.Key.InstanceID, &rec.Operation, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning instance operation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) UpsertInstanceOperation(ctx context.Context, rec model.InstanceOperationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO artemis_instance_operation (region_id, zone_id, service_id, group_id, instance_id, operation, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (region_id, zone_id, service_id, group_id, instance_id)
		DO UPDATE SET operation = $6, updated_at = $7`,
		rec.Key.RegionID, rec.Key.ZoneID, rec.Key.ServiceID, rec.Key.GroupID, rec.Key.InstanceID, rec.Operation, time.Now())
	if err != nil {
		return fmt.Errorf("upserting instance operation: %w", err)
	}
	return nil
}

func (s *Store) DeleteInstanceOperation(ctx context.Context, key model.InstanceKey) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM artemis_instance_operation
		WHERE region_id = $1 AND zone_id = $2 AND service_id = $3 AND group_id = $4 AND instance_id = $5`,
		key.RegionID, key.ZoneID, key.ServiceID, key.GroupID, key.InstanceID)
	if err != nil {
		return fmt.Errorf("deleting instance operation: %w", err)
	}
	return nil
}

func (s *Store) LoadServerOperations(ctx context.Context) ([]model.ServerOperationRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT region_id, ip, operation, updated_at FROM artemis_server_operation`)
	if err != nil {
		return nil, fmt.Errorf("querying server operations: %w", err)
	}
	defer rows.Close()

	var out []model.ServerOperationRecord
	for rows.Next() {
		var rec model.ServerOperationRecord
		if err := rows.Scan(&rec.RegionID, &rec.IP, &rec.Operation, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning server operation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) UpsertServerOperation(ctx context.Context, rec model.ServerOperationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO artemis_server_operation (region_id, ip, operation, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (region_id, ip) DO UPDATE SET operation = $3, updated_at = $4`,
		rec.RegionID, rec.IP, rec.Operation, time.Now())
	if err != nil {
		return fmt.Errorf("upserting server operation: %w", err)
	}
	return nil
}

func (s *Store) DeleteServerOperation(ctx context.Context, regionID, ip string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM artemis_server_operation WHERE region_id = $1 AND ip = $2`, regionID, ip)
	if err != nil {
		return fmt.Errorf("deleting server operation: %w", err)
	}
	return nil
}
