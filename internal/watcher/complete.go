package watcher

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// waitForComplete blocks until the file at path has been fully
// written: two consecutive size polls agree on a non-zero size and the
// content parses as JSON. Returns an error if the file does not
// stabilize within maxWait.
//
// Stat errors (file vanished mid-check, transient share hiccups) are
// not fatal; the poll simply continues until the deadline.
func waitForComplete(path string, interval, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	lastSize := int64(-1)

	for time.Now().Before(deadline) {
		info, err := os.Stat(path)
		if err != nil {
			lastSize = -1
			time.Sleep(interval)
			continue
		}

		size := info.Size()
		if size == lastSize && size > 0 {
			data, err := os.ReadFile(path)
			if err == nil && json.Valid(data) {
				return nil
			}
			// Stable size but not yet parseable: writer is still
			// flushing, keep waiting.
		}

		lastSize = size
		time.Sleep(interval)
	}

	return fmt.Errorf("file %s did not stabilize within %s", path, maxWait)
}
