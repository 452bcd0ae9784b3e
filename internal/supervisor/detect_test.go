package supervisor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"appctl/internal/lockstore"
)

type registry struct {
	Absent
	units map[string]bool
	err   error
}

func (r registry) Name() string { return "fake" }

func (r registry) HasUnit(_ context.Context, unit string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.units[unit] || r.units[unit+".service"], nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		sup    UnitSupervisor
		want   string
		ok     bool
	}{
		{name: "no marker", sup: registry{units: map[string]bool{"webapp.service": true}}},
		{name: "registered", marker: "webapp", sup: registry{units: map[string]bool{"webapp.service": true}}, want: "webapp", ok: true},
		{name: "stale marker", marker: "retired", sup: registry{units: map[string]bool{"webapp.service": true}}},
		{name: "supervisor absent", marker: "webapp", sup: Absent{}},
		{name: "lookup error", marker: "webapp", sup: registry{err: errors.New("bus timeout")}},
		{name: "blank marker", marker: "  ", sup: registry{units: map[string]bool{"webapp.service": true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := lockstore.NewFileStore(filepath.Join(t.TempDir(), "locks"))
			if tt.marker != "" {
				if err := store.Set(lockstore.MarkerService, tt.marker); err != nil {
					t.Fatal(err)
				}
			}
			unit, ok := NewDetector(store, tt.sup, nil).Detect(context.Background())
			if ok != tt.ok || unit != tt.want {
				t.Fatalf("Detect = %q, %v; want %q, %v", unit, ok, tt.want, tt.ok)
			}
		})
	}
}
