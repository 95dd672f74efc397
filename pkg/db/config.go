package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNoActiveProfile = errors.New("no active profile found")

// Config represents the complete runtime configuration loaded from the database.
type Config struct {
	Profile   *Profile
	APIServer *APIServer
	Discovery *DiscoverySettings
}

// APIAddress returns the API server listen address.
func (c *Config) APIAddress() string {
	if c.APIServer == nil {
		return "0.0.0.0:8000"
	}
	return c.APIServer.Address()
}

// ProbeInterval returns the liveness sweep interval.
func (c *Config) ProbeInterval() time.Duration {
	if c.Discovery == nil {
		return 60 * time.Second
	}
	return c.Discovery.ProbeInterval
}

// ActiveConfig loads the complete configuration for the active profile.
func (db *DB) ActiveConfig(ctx context.Context) (*Config, error) {
	// Get active profile
	profile, err := db.Profiles().GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNoActiveProfile
		}
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}

	config := &Config{
		Profile: profile,
	}

	// Get API server config
	apiServer, err := db.APIServers().Get(ctx, profile.ID)
	if err != nil && !errors.Is(err, ErrAPIServerNotFound) {
		return nil, fmt.Errorf("failed to get API server config: %w", err)
	}
	config.APIServer = apiServer

	// Get discovery tuning
	discovery, err := db.DiscoverySettings().Get(ctx, profile.ID)
	if err != nil && !errors.Is(err, ErrDiscoverySettingsNotFound) {
		return nil, fmt.Errorf("failed to get discovery settings: %w", err)
	}
	config.Discovery = discovery

	return config, nil
}
