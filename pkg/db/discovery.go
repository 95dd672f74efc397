package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrDiscoverySettingsNotFound = errors.New("discovery settings not found")

// DiscoverySettings tunes the gateway's probe sweep and command dispatch.
type DiscoverySettings struct {
	ID             int64
	ProfileID      int64
	ProbeInterval  time.Duration
	ProbeTimeout   time.Duration
	CommandTimeout time.Duration
	EventBuffer    int
	CreatedAt      time.Time
}

// DiscoverySettingsStore provides discovery settings CRUD operations.
type DiscoverySettingsStore interface {
	Get(ctx context.Context, profileID int64) (*DiscoverySettings, error)
	Create(ctx context.Context, d *DiscoverySettings) error
	Update(ctx context.Context, d *DiscoverySettings) error
}

// DiscoverySettings returns a DiscoverySettingsStore for this database.
func (db *DB) DiscoverySettings() DiscoverySettingsStore {
	return &discoverySettingsStore{db: db}
}

type discoverySettingsStore struct {
	db *DB
}

func (s *discoverySettingsStore) Get(ctx context.Context, profileID int64) (*DiscoverySettings, error) {
	d := &DiscoverySettings{}
	var probeIntervalSeconds, probeTimeoutMillis, commandTimeoutMillis int64
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, probe_interval_seconds, probe_timeout_millis, command_timeout_millis, event_buffer, created_at
		FROM discovery_settings WHERE profile_id = ?
	`, profileID).Scan(&d.ID, &d.ProfileID, &probeIntervalSeconds, &probeTimeoutMillis, &commandTimeoutMillis, &d.EventBuffer, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrDiscoverySettingsNotFound
	}
	if err != nil {
		return nil, err
	}
	d.ProbeInterval = time.Duration(probeIntervalSeconds) * time.Second
	d.ProbeTimeout = time.Duration(probeTimeoutMillis) * time.Millisecond
	d.CommandTimeout = time.Duration(commandTimeoutMillis) * time.Millisecond
	d.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return d, nil
}

func (s *discoverySettingsStore) Create(ctx context.Context, d *DiscoverySettings) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO discovery_settings (profile_id, probe_interval_seconds, probe_timeout_millis, command_timeout_millis, event_buffer)
		VALUES (?, ?, ?, ?, ?)
	`, d.ProfileID, int64(d.ProbeInterval/time.Second), int64(d.ProbeTimeout/time.Millisecond), int64(d.CommandTimeout/time.Millisecond), d.EventBuffer)
	if err != nil {
		return fmt.Errorf("failed to create discovery settings: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

func (s *discoverySettingsStore) Update(ctx context.Context, d *DiscoverySettings) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE discovery_settings
		SET probe_interval_seconds = ?, probe_timeout_millis = ?, command_timeout_millis = ?, event_buffer = ?
		WHERE profile_id = ?
	`, int64(d.ProbeInterval/time.Second), int64(d.ProbeTimeout/time.Millisecond), int64(d.CommandTimeout/time.Millisecond), d.EventBuffer, d.ProfileID)
	return err
}
