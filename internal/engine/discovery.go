// Package engine locates the validation engine executable.
package engine

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/judepayne/validation-service/internal/errors"
)

// Find locates the engine executable.
//
// A value containing a path separator is treated as an explicit path and
// is used without searching. A bare name is resolved against PATH first,
// then against common install directories (/usr/local/bin, /usr/bin,
// ~/.local/bin).
//
// Returns the resolved path or EngineNotFoundError listing everywhere
// that was searched.
func Find(log *slog.Logger, executable string) (string, error) {
	// Explicit path: use it and only it
	if strings.ContainsRune(executable, os.PathSeparator) {
		log.Debug("Using explicit engine path", "path", executable)

		if _, err := os.Stat(executable); err == nil {
			return executable, nil
		}

		log.Debug("Explicit engine path not found", "path", executable)

		return "", &errors.EngineNotFoundError{SearchedPaths: []string{executable}}
	}

	searchedPaths := make([]string, 0, 4)

	log.Debug("Searching for engine executable in PATH", "executable", executable)

	if path, err := exec.LookPath(executable); err == nil {
		log.Debug("Found engine executable in PATH", "path", path)

		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	// Check common locations
	commonPaths := []string{
		filepath.Join("/usr/local/bin", executable),
		filepath.Join("/usr/bin", executable),
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(homeDir, ".local/bin", executable))
	}

	for _, path := range commonPaths {
		searchedPaths = append(searchedPaths, path)
		log.Debug("Checking common path", "path", path)

		if _, err := os.Stat(path); err == nil {
			log.Debug("Found engine executable at common path", "path", path)

			return path, nil
		}
	}

	log.Warn("Engine executable not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.EngineNotFoundError{SearchedPaths: searchedPaths}
}
