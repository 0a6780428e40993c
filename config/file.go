package config

import (
	"os"

	"github.com/c360/quakerelay/errors"
)

// maxConfigSize bounds how much of a config file Load will read, guarding
// against a misdirected path landing on something enormous (a device node,
// a log file). Adapted from the teacher's config/security.go safeReadFile,
// which enforced the same limit; the path-traversal checks that used to
// sit alongside it do not apply here since the config path is a single
// positional CLI argument supplied by a trusted local operator, not a
// value accepted over an API.
const maxConfigSize = 10 << 20 // 10MiB

// safeReadFile reads path after confirming it is a regular file within
// maxConfigSize, so Load never blocks on a FIFO or blows memory on a
// pathological target.
func safeReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "safeReadFile", "stat config file")
	}
	if !info.Mode().IsRegular() {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "safeReadFile", "config path is not a regular file")
	}
	if info.Size() > maxConfigSize {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "safeReadFile", "config file exceeds maximum size")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "safeReadFile", "read config file")
	}
	return data, nil
}
