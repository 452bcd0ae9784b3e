// Command appctl starts, stops, restarts and upgrades a single long-running
// application.
//
// When a systemd unit is registered (see `appctl service set`) lifecycle verbs
// go to the supervisor and appctl waits for the unit to become active,
// printing status and journal lines when it fails. Otherwise the configured
// application command runs directly, attached or inside a screen session.
//
// `appctl upgrade` pulls the working copy and reinstalls dependencies only
// when the manifest fingerprint changed. `appctl schedule` runs automatic
// upgrades that skip once after a recent manual start.
//
// Exit status is 0 on success, 1 on operational failures and 2 on usage
// errors.
package main
