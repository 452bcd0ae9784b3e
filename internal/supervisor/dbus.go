package supervisor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/coreos/go-systemd/v22/dbus"

	"appctl/internal/config"
)

// DBus talks to systemd over the system bus. Diagnostics still come from the
// systemctl and journalctl binaries since the bus exposes no log access.
type DBus struct {
	conn *dbus.Conn
	diag *Systemctl
}

// NewDBus connects to the system bus.
func NewDBus(ctx context.Context, cfg *config.Config) (*DBus, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w: %w", ErrUnavailable, err)
	}
	return &DBus{conn: conn, diag: NewSystemctl(cfg, nil)}, nil
}

func (d *DBus) Name() string { return "dbus" }

// Close releases the bus connection.
func (d *DBus) Close() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *DBus) HasUnit(ctx context.Context, unit string) (bool, error) {
	if d.conn == nil {
		return false, ErrUnavailable
	}
	files, err := d.conn.ListUnitFilesByPatternsContext(ctx, nil, []string{unit, unit + ".service"})
	if err != nil {
		return false, fmt.Errorf("list unit files: %w", err)
	}
	for _, file := range files {
		if matchesUnit(filepath.Base(file.Path), unit) {
			return true, nil
		}
	}
	// Transient and generated units have no unit file.
	units, err := d.conn.ListUnitsByNamesContext(ctx, []string{unitFileName(unit)})
	if err != nil {
		return false, fmt.Errorf("list units: %w", err)
	}
	for _, u := range units {
		if matchesUnit(u.Name, unit) && u.LoadState != "not-found" {
			return true, nil
		}
	}
	return false, nil
}

func (d *DBus) State(ctx context.Context, unit string) (Sample, error) {
	if d.conn == nil {
		return UnknownSample(), ErrUnavailable
	}
	name := unitFileName(unit)
	props, err := d.conn.GetUnitPropertiesContext(ctx, name)
	if err != nil {
		return UnknownSample(), fmt.Errorf("unit properties %s: %w", name, err)
	}
	sample := UnknownSample()
	if v, ok := props["ActiveState"].(string); ok && v != "" {
		sample.Active = v
	}
	if v, ok := props["SubState"].(string); ok && v != "" {
		sample.Sub = v
	}
	svcProps, err := d.conn.GetUnitTypePropertiesContext(ctx, name, "Service")
	if err == nil {
		if v, ok := svcProps["Result"].(string); ok && v != "" {
			sample.Result = v
		}
	}
	return sample, nil
}

func (d *DBus) Stop(ctx context.Context, unit string) error {
	return d.job(ctx, "stop", unit, d.conn.StopUnitContext)
}

func (d *DBus) Restart(ctx context.Context, unit string) error {
	return d.job(ctx, "restart", unit, d.conn.RestartUnitContext)
}

type jobFunc func(ctx context.Context, name, mode string, ch chan<- string) (int, error)

func (d *DBus) job(ctx context.Context, verb, unit string, fn jobFunc) error {
	if d.conn == nil {
		return ErrUnavailable
	}
	name := unitFileName(unit)
	done := make(chan string, 1)
	if _, err := fn(ctx, name, "replace", done); err != nil {
		return fmt.Errorf("%s %s: %w", verb, name, err)
	}
	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("%s %s: job %s", verb, name, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DBus) Diagnostics(ctx context.Context, unit string) (Diagnostics, error) {
	return collectDiagnostics(ctx, d.diag, unit)
}
