package tcpostgres

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgUser     = "postgres"
	pgPassword = "password"
	pgDatabase = "postgres"
)

// PostgresContainer is a reusable postgres container for repository tests
type PostgresContainer struct {
	testcontainers.Container
	port nat.Port
}

type containerConfig struct {
	image   string
	name    string
	startup time.Duration
}

type ContainerOption func(cfg *containerConfig)

func WithImage(image string) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.image = image
	}
}

func WithName(containerName string) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.name = containerName
	}
}

func WithStartupTimeout(d time.Duration) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.startup = d
	}
}

// StartPostgres starts a postgres container or reuses a running one with the same name
func StartPostgres(ctx context.Context, opts ...ContainerOption) (*PostgresContainer, error) {
	cfg := containerConfig{image: "postgres:16", startup: 5 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		return nil, err
	}
	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		Name:         cfg.name,
		ExposedPorts: []string{string(port)},
		Cmd:          []string{"postgres", "-c", "fsync=off"},
		Env: map[string]string{
			"POSTGRES_USER":     pgUser,
			"POSTGRES_PASSWORD": pgPassword,
			"POSTGRES_DB":       pgDatabase,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(cfg.startup),
	}
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
			Reuse:            cfg.name != "",
		})
	if err != nil {
		return nil, err
	}
	return &PostgresContainer{Container: container, port: port}, nil
}

// DSN returns the connection string of the database inside the container
func (c *PostgresContainer) DSN(ctx context.Context) (string, error) {
	mapped, err := c.MappedPort(ctx, c.port)
	if err != nil {
		return "", err
	}
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		pgUser, pgPassword, host, mapped.Port(), pgDatabase), nil
}
