package lockstore

import (
	"strconv"
	"strings"
	"time"
)

// RecordStartSkip stamps the start-skip marker with now as epoch seconds.
func RecordStartSkip(store Store, now time.Time) error {
	return store.Set(MarkerStartSkip, strconv.FormatInt(now.Unix(), 10))
}

// StartSkipTime returns the timestamp held by the start-skip marker.
// ok is false when the marker is absent or unparseable.
func StartSkipTime(store Store) (time.Time, bool, error) {
	value, found, err := store.Get(MarkerStartSkip)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.Unix(secs, 0), true, nil
}

// ConsumeStartSkip reports whether a start-skip marker no older than window
// exists, deleting it when it does. Stale or malformed markers are left alone.
// The check and the delete are not atomic.
func ConsumeStartSkip(store Store, now time.Time, window time.Duration) (bool, error) {
	stamped, ok, err := StartSkipTime(store)
	if err != nil || !ok {
		return false, err
	}
	age := now.Sub(stamped)
	if age < 0 || age > window {
		return false, nil
	}
	if err := store.Delete(MarkerStartSkip); err != nil {
		return false, err
	}
	return true, nil
}
