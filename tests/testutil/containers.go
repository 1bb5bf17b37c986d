// Package testutil spins up the backing services the integration
// tests need: PostgreSQL, Valkey and NATS with JetStream.
package testutil

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/craftparty/emerald-market/internal/cache"
	"github.com/craftparty/emerald-market/internal/database"
	"github.com/craftparty/emerald-market/internal/events"
)

// SchemaSQL creates the listings table the way migrations do in
// deployment.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS listings (
    id UUID PRIMARY KEY,
    item TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    price_emeralds INTEGER NOT NULL,
    seller TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 1,
    expires_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_listings_item ON listings (item);
CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings (seller);
CREATE INDEX IF NOT EXISTS idx_listings_expires_at ON listings (expires_at);
`

// TestContainers holds all test containers
type TestContainers struct {
	PostgresContainer testcontainers.Container
	ValkeyContainer   testcontainers.Container
	NATSContainer     testcontainers.Container

	PostgresHost string
	PostgresPort int
	ValkeyHost   string
	ValkeyPort   int
	NATSURL      string
}

// StartContainers starts all required containers for testing
func StartContainers(ctx context.Context) (*TestContainers, error) {
	tc := &TestContainers{}

	// PostgreSQL
	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("emeraldmarket"),
		postgres.WithUsername("market"),
		postgres.WithPassword("marketpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	tc.PostgresContainer = pgContainer

	tc.PostgresHost, tc.PostgresPort, err = hostPort(ctx, pgContainer, "5432/tcp")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve postgres address: %w", err)
	}

	// Valkey speaks the Redis protocol, the stock Redis module works.
	valkeyContainer, err := redis.RunContainer(ctx,
		testcontainers.WithImage("valkey/valkey:8-alpine"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start valkey container: %w", err)
	}
	tc.ValkeyContainer = valkeyContainer

	tc.ValkeyHost, tc.ValkeyPort, err = hostPort(ctx, valkeyContainer, "6379/tcp")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve valkey address: %w", err)
	}

	// NATS with JetStream
	natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor: wait.ForLog("Server is ready").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start nats container: %w", err)
	}
	tc.NATSContainer = natsContainer

	natsHost, natsPort, err := hostPort(ctx, natsContainer, "4222/tcp")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve nats address: %w", err)
	}
	tc.NATSURL = fmt.Sprintf("nats://%s:%d", natsHost, natsPort)

	return tc, nil
}

func hostPort(ctx context.Context, container testcontainers.Container, port nat.Port) (string, int, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", 0, err
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return "", 0, err
	}

	p, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return "", 0, err
	}

	return host, p, nil
}

// DatabaseConfig returns a config pointing at the postgres container
func (tc *TestContainers) DatabaseConfig() *database.Config {
	return &database.Config{
		Host:            tc.PostgresHost,
		Port:            tc.PostgresPort,
		User:            "market",
		Password:        "marketpass",
		Database:        "emeraldmarket",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// CacheConfig returns a config pointing at the valkey container
func (tc *TestContainers) CacheConfig() *cache.Config {
	return &cache.Config{
		Host:         tc.ValkeyHost,
		Port:         tc.ValkeyPort,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		DefaultTTL:   time.Minute,
	}
}

// EventsConfig returns a config pointing at the nats container
func (tc *TestContainers) EventsConfig() *events.Config {
	return &events.Config{
		URL:              tc.NATSURL,
		Name:             "emerald-market-test",
		StreamName:       "MARKET_LISTINGS_TEST",
		StreamMaxAge:     time.Hour,
		StreamMaxBytes:   64 * 1024 * 1024,
		StreamMaxMsgs:    10000,
		StreamMaxMsgSize: 1024 * 1024,
		StreamReplicas:   1,
	}
}

// ApplySchema creates the listings table
func (tc *TestContainers) ApplySchema(ctx context.Context, db *database.DB) error {
	if _, err := db.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Cleanup terminates all containers
func (tc *TestContainers) Cleanup(ctx context.Context) error {
	var errs []error

	if tc.PostgresContainer != nil {
		if err := tc.PostgresContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate postgres: %w", err))
		}
	}

	if tc.ValkeyContainer != nil {
		if err := tc.ValkeyContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate valkey: %w", err))
		}
	}

	if tc.NATSContainer != nil {
		if err := tc.NATSContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate nats: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}

	return nil
}
