package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"appctl/internal/lockstore"
	"appctl/internal/logging"
)

// Detector resolves the supervised unit named by the service marker.
type Detector struct {
	store      lockstore.Store
	supervisor UnitSupervisor
	logger     *slog.Logger
}

// NewDetector wires a detector. A nil supervisor behaves as Absent.
func NewDetector(store lockstore.Store, sup UnitSupervisor, logger *slog.Logger) *Detector {
	if sup == nil {
		sup = Absent{}
	}
	return &Detector{
		store:      store,
		supervisor: sup,
		logger:     logging.NewComponentLogger(logger, "detector"),
	}
}

// Detect returns the unit to manage and whether one was found. A missing
// marker, a stale unit name and an unreachable supervisor all mean "not
// supervised"; none of them is an error.
func (d *Detector) Detect(ctx context.Context) (string, bool) {
	logger := logging.WithContext(ctx, d.logger)

	value, ok, err := d.store.Get(lockstore.MarkerService)
	if err != nil {
		logging.WarnWithContext(logger, "service marker unreadable", "service_marker_unreadable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the lock directory"),
			logging.String(logging.FieldImpact, "treating the application as unsupervised"),
		)
		return "", false
	}
	unit := strings.TrimSpace(value)
	if !ok || unit == "" {
		logger.Debug("no service marker; application is unsupervised")
		return "", false
	}

	found, err := d.supervisor.HasUnit(ctx, unit)
	switch {
	case errors.Is(err, ErrUnavailable):
		logging.WarnWithContext(logger, "supervisor unavailable", "supervisor_unavailable",
			logging.String(logging.FieldUnit, unit),
			logging.String("backend", d.supervisor.Name()),
			logging.String(logging.FieldErrorHint, "install systemd or run 'appctl service clear'"),
			logging.String(logging.FieldImpact, "falling back to the direct process runner"),
		)
		return "", false
	case err != nil:
		logging.WarnWithContext(logger, "unit lookup failed", "unit_lookup_failed",
			logging.String(logging.FieldUnit, unit),
			logging.Error(err),
			logging.String(logging.FieldImpact, "falling back to the direct process runner"),
		)
		return "", false
	case !found:
		logging.WarnWithContext(logger, "service marker names an unknown unit", "unit_not_found",
			logging.String(logging.FieldUnit, unit),
			logging.String(logging.FieldErrorHint, "run 'appctl service set <unit>' or 'appctl service clear'"),
			logging.String(logging.FieldImpact, "falling back to the direct process runner"),
		)
		return "", false
	}
	logger.Debug("supervised unit detected", logging.String(logging.FieldUnit, unit), logging.String("backend", d.supervisor.Name()))
	return unit, true
}
