package connection

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Graph.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Graph manages connections between devices.
//
// It validates input and delegates the endpoint and reverse checks to the
// repository, which runs them in the same transaction as the write.
type Graph struct {
	repo   Repository
	logger Logger
}

// NewGraph creates a connection graph backed by repo.
func NewGraph(repo Repository) *Graph {
	return &Graph{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the graph.
func (g *Graph) SetLogger(logger Logger) {
	g.logger = logger
}

// List returns every connection, or those where deviceID is source or target.
func (g *Graph) List(ctx context.Context, deviceID string) ([]Connection, error) {
	return g.repo.List(ctx, strings.TrimSpace(deviceID))
}

// Get returns ErrConnectionNotFound if id is unknown.
func (g *Graph) Get(ctx context.Context, id string) (*Connection, error) {
	return g.repo.GetByID(ctx, id)
}

// Create links source to target.
//
// It fails with ErrInvalidConnection (wrapping ErrInvalidType or
// ErrSelfConnection) on bad input, ErrDeviceNotFound when an endpoint is
// missing, and ErrReverseExists when target→source is already present.
func (g *Graph) Create(ctx context.Context, source, target, connType string) (*Connection, error) {
	c, err := newConnection(uuid.New().String(), source, target, connType)
	if err != nil {
		return nil, err
	}

	if err := g.repo.CreateChecked(ctx, c); err != nil {
		return nil, err
	}

	g.logger.Info("connection created",
		"id", c.ID, "source", c.SourceDevice, "target", c.TargetDevice, "type", c.ConnectionType)
	return c, nil
}

// Update rewrites an existing connection under the same rules as Create.
func (g *Graph) Update(ctx context.Context, id, source, target, connType string) (*Connection, error) {
	c, err := newConnection(id, source, target, connType)
	if err != nil {
		return nil, err
	}

	if err := g.repo.UpdateChecked(ctx, c); err != nil {
		return nil, err
	}

	g.logger.Info("connection updated", "id", c.ID)
	return c, nil
}

// Delete removes a connection.
func (g *Graph) Delete(ctx context.Context, id string) error {
	if err := g.repo.Delete(ctx, id); err != nil {
		return err
	}
	g.logger.Info("connection deleted", "id", id)
	return nil
}

// ReverseExists reports whether snapshot already holds target→source.
// It is a preflight over a loaded set; Create re-checks authoritatively.
func (g *Graph) ReverseExists(snapshot []Connection, source, target string) bool {
	for i := range snapshot {
		if snapshot[i].SourceDevice == target && snapshot[i].TargetDevice == source {
			return true
		}
	}
	return false
}

func newConnection(id, source, target, connType string) (*Connection, error) {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" || target == "" {
		return nil, fmt.Errorf("%w: source_device and target_device are required", ErrInvalidConnection)
	}

	t, err := ParseType(connType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidConnection, err, connType)
	}
	if source == target {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConnection, ErrSelfConnection)
	}

	return &Connection{
		ID:             id,
		SourceDevice:   source,
		TargetDevice:   target,
		ConnectionType: t,
	}, nil
}
