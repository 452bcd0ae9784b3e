package supervisor

import "context"

// Absent stands in when no supervisor is installed.
type Absent struct{}

func (Absent) Name() string { return "none" }

func (Absent) HasUnit(context.Context, string) (bool, error) { return false, ErrUnavailable }

func (Absent) State(context.Context, string) (Sample, error) {
	return UnknownSample(), ErrUnavailable
}

func (Absent) Stop(context.Context, string) error { return ErrUnavailable }

func (Absent) Restart(context.Context, string) error { return ErrUnavailable }

func (Absent) Diagnostics(context.Context, string) (Diagnostics, error) {
	return Diagnostics{}, ErrUnavailable
}
