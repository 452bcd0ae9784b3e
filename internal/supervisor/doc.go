// Package supervisor abstracts the external process supervisor (systemd)
// behind the UnitSupervisor capability set.
//
// Systemctl shells out to systemctl and journalctl, DBus talks to systemd on
// the system bus, and Absent stands in when neither is available. Mutating
// verbs are prefixed with "sudo -n" when elevation resolves to it; queries
// always run unprivileged. Detector turns the service lock marker into a
// verified unit name and never fails: anything it cannot confirm is reported
// as unsupervised.
package supervisor
