package utils

import (
	"fmt"
	"os"
	"runtime"
)

// PermissionsTooOpen reports whether a file can be read or written by group
// or others. Always false on Windows, where mode bits are not meaningful.
func PermissionsTooOpen(path string) (bool, os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	mode := info.Mode().Perm()
	if runtime.GOOS == "windows" {
		return false, mode, nil
	}

	return mode&0o077 != 0, mode, nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
