//go:build windows

package runner

import "errors"

// execReplace is unavailable on Windows, which has no process-image-replace
// primitive equivalent to exec(2). Run falls back to spawn-and-wait there,
// per spec.md §4.6 item 4 ("on other systems, spawn and wait").
func execReplace(path string, argv []string, env []string) error {
	return errors.New("process replacement is not supported on this platform")
}

const canReplaceProcess = false
