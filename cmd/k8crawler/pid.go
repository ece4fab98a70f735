package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/k8crawler/internal/config"
)

// pidFileName is the file in the XDG state directory holding the pid of
// the running crawl.
const pidFileName = "k8crawler.pid"

// errNotRunning is returned by stop when no crawl is recorded.
var errNotRunning = errors.New("no running crawl found")

// defaultPIDFile returns the pid file path in the XDG state directory.
func defaultPIDFile() string {
	return filepath.Join(config.XDGStateDir(), pidFileName)
}

// writePIDFile records the current process id at path.
func writePIDFile(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0600)
}

// readPIDFile returns the process id recorded at path.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, errNotRunning
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", path)
	}
	return pid, nil
}

// removePIDFile deletes the pid file if it still holds our pid.
func removePIDFile(path string) {
	if pid, err := readPIDFile(path); err == nil && pid == os.Getpid() {
		_ = os.Remove(path)
	}
}
