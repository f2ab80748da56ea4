// ABOUTME: XDG Base Directory support for jsonrpcd config and data files
// ABOUTME: Expands $XDG_* and ~ prefixes in configured paths with HOME fallback

package xdg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/harper/jsonrpcd/internal/errors"
)

// AppName is the directory name used under each XDG base directory.
const AppName = "jsonrpcd"

type baseDir struct {
	variable string
	fallback []string
}

var (
	configBase = baseDir{"XDG_CONFIG_HOME", []string{".config"}}
	dataBase   = baseDir{"XDG_DATA_HOME", []string{".local", "share"}}
	cacheBase  = baseDir{"XDG_CACHE_HOME", []string{".cache"}}
)

func (b baseDir) root() string {
	if dir := os.Getenv(b.variable); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{getHome()}, b.fallback...)...)
}

// ConfigHome returns ~/.config/jsonrpcd or respects XDG_CONFIG_HOME.
func ConfigHome() string {
	return filepath.Join(configBase.root(), AppName)
}

// DataHome returns ~/.local/share/jsonrpcd or respects XDG_DATA_HOME.
func DataHome() string {
	return filepath.Join(dataBase.root(), AppName)
}

// CacheHome returns ~/.cache/jsonrpcd or respects XDG_CACHE_HOME.
func CacheHome() string {
	return filepath.Join(cacheBase.root(), AppName)
}

// DefaultDatabasePath is where the traffic log lives when none is configured.
func DefaultDatabasePath() string {
	return filepath.Join(DataHome(), "db.sqlite")
}

// ExpandPath expands $XDG_* variables and ~ in config paths.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(getHome(), path[2:])
	}

	// strings.HasPrefix, not filepath.HasPrefix: the latter is not a path
	// component check and is deprecated.
	for _, b := range []baseDir{dataBase, configBase, cacheBase} {
		prefix := "$" + b.variable
		if strings.HasPrefix(path, prefix) {
			return strings.Replace(path, prefix, b.root(), 1)
		}
	}

	return path
}

// EnsureParent creates the directory holding path. variable names the XDG
// variable the path came from, for the error message.
func EnsureParent(variable, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.NewXDGPathError(variable, dir, err)
	}
	return nil
}

// getHome returns HOME with fallback chain.
func getHome() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}

	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}
