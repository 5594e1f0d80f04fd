package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// homeDir returns the user's home directory, panicking if it can't be resolved.
var homeDir = func() string {
	h, err := os.UserHomeDir()
	if err != nil {
		panic("cannot resolve home directory: " + err.Error())
	}
	return h
}

// SetHomeDir overrides the home directory used by all path functions.
// Intended for testing. Returns a restore function.
func SetHomeDir(dir string) func() {
	old := homeDir
	homeDir = func() string { return dir }
	return func() { homeDir = old }
}

// AppDir returns ~/.dxrender/
func AppDir() string {
	return filepath.Join(homeDir(), ".dxrender")
}

// ConfigPath returns ~/.dxrender/config.yaml
func ConfigPath() string {
	return filepath.Join(AppDir(), "config.yaml")
}

// ClipFile returns the file name used for a clip: <dir>/0001.wav for index 1.
func ClipFile(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%04d.wav", index))
}

// DefaultOutput derives an output path from a chart path: song.bin -> song.wav.
func DefaultOutput(chartPath string) string {
	ext := filepath.Ext(chartPath)
	return strings.TrimSuffix(chartPath, ext) + ".wav"
}
