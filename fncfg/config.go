package fncfg

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

const (
	// DefaultConfigFilename is the default configuration file name fnpilot
	// tries to load.
	DefaultConfigFilename = "fiber-autopilot.toml"

	// DefaultFiberURL is the default JSON-RPC endpoint of a local Fiber
	// node.
	DefaultFiberURL = "http://127.0.0.1:8227"

	// DefaultCkbURL is the default JSON-RPC endpoint of a local CKB node.
	DefaultCkbURL = "http://127.0.0.1:8114"
)

// Validator is implemented by every sub-config that can check itself.
type Validator interface {
	// Validate returns an error describing the first invalid value.
	Validate() error
}

// Validate validates every config in turn and returns the first error.
func Validate(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
