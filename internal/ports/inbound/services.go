// Package inbound contains the primary/inbound ports.
// These interfaces define the use cases that the application exposes.
package inbound

import (
	"context"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
)

// SignupService defines the primary use cases of the sign-up sheet.
// Inbound adapters (HTTP handlers, CLI) call these methods.
type SignupService interface {
	// Snapshot returns the full sheet in stored row order. It fails open:
	// when the store is unreachable the returned Snapshot is empty and
	// usable, and the error (a registry.ErrStoreUnavailable wrap) only
	// tells the caller the emptiness is transient.
	Snapshot(ctx context.Context) (entity.Snapshot, error)

	// Submit validates candidate, checks its dish against every existing
	// entry and appends it to the end of the sheet. Outcomes are a nil
	// error, a *entity.ValidationError, entity.ErrDuplicateDish or a
	// registry.ErrStoreUnavailable wrap.
	Submit(ctx context.Context, candidate entity.Entry) error

	// Ping verifies that the backing store is reachable.
	Ping(ctx context.Context) error
}

// HealthChecker defines the interface for services that can report readiness
// and liveness. This enables health checking during rolling deployments,
// ensuring new instances can reach the store before old ones are terminated.
type HealthChecker interface {
	// IsReady returns true when the service is ready to handle traffic.
	// For the registry, this means the store has answered at least once.
	// Used by ECS/Kubernetes readiness probes during rolling deployments.
	IsReady() bool

	// IsHealthy returns true when the service is operating normally.
	// For the registry, this means the most recent store operation did not
	// fail. Used by liveness probes to detect a dead backend.
	IsHealthy() bool
}
