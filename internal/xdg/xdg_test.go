// ABOUTME: Tests for XDG base directory resolution and path expansion
// ABOUTME: Covers HOME fallback and directory creation errors

package xdg

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harper/jsonrpcd/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHome(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME not set")
	}

	got := ConfigHome()
	want := filepath.Join(home, ".config", "jsonrpcd")

	if got != want {
		t.Errorf("ConfigHome() = %q, want %q", got, want)
	}
}

func TestConfigHome_WithEnv(t *testing.T) {
	// Test XDG_CONFIG_HOME environment variable
	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	defer func() {
		if oldXDG != "" {
			_ = os.Setenv("XDG_CONFIG_HOME", oldXDG)
		} else {
			_ = os.Unsetenv("XDG_CONFIG_HOME")
		}
	}()

	testPath := "/tmp/custom-config"
	_ = os.Setenv("XDG_CONFIG_HOME", testPath)

	got := ConfigHome()
	want := filepath.Join(testPath, "jsonrpcd")
	if got != want {
		t.Errorf("ConfigHome() with XDG_CONFIG_HOME = %q, want %q", got, want)
	}
}

func TestDataHome(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME not set")
	}

	got := DataHome()
	want := filepath.Join(home, ".local", "share", "jsonrpcd")

	if got != want {
		t.Errorf("DataHome() = %q, want %q", got, want)
	}
}

func TestCacheHome(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME not set")
	}

	got := CacheHome()
	want := filepath.Join(home, ".cache", "jsonrpcd")

	if got != want {
		t.Errorf("CacheHome() = %q, want %q", got, want)
	}
}

func TestExpandPath(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME not set")
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "XDG_DATA_HOME variable with app subdirectory",
			input: "$XDG_DATA_HOME/jsonrpcd/db.sqlite",
			want:  filepath.Join(home, ".local", "share", "jsonrpcd", "db.sqlite"),
		},
		{
			name:  "XDG_CONFIG_HOME variable with app subdirectory",
			input: "$XDG_CONFIG_HOME/jsonrpcd/config.yaml",
			want:  filepath.Join(home, ".config", "jsonrpcd", "config.yaml"),
		},
		{
			name:  "XDG_CACHE_HOME variable with app subdirectory",
			input: "$XDG_CACHE_HOME/jsonrpcd/cache.db",
			want:  filepath.Join(home, ".cache", "jsonrpcd", "cache.db"),
		},
		{
			name:  "non-XDG path passes through",
			input: "/absolute/path/to/file",
			want:  "/absolute/path/to/file",
		},
		{
			name:  "relative path passes through",
			input: "relative/path/to/file",
			want:  "relative/path/to/file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandPath(tt.input)
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandPath_MissingHOME(t *testing.T) {
	oldHome := os.Getenv("HOME")
	_ = os.Unsetenv("HOME")
	defer func() { _ = os.Setenv("HOME", oldHome) }()

	// Should fall back to current directory
	got := ExpandPath("$XDG_DATA_HOME/jsonrpcd/db.sqlite")

	// Should not create path at root
	if filepath.IsAbs(got) && filepath.Dir(filepath.Dir(got)) == "/" {
		t.Errorf("ExpandPath with missing HOME created root path: %q", got)
	}
}

func TestExpandPath_StringPrefix(t *testing.T) {
	input := "$XDG_DATA_HOME/jsonrpcd/db.sqlite"
	got := ExpandPath(input)

	// Should detect $XDG_* prefix correctly
	if got == input {
		t.Errorf("ExpandPath(%q) did not expand, returned %q", input, got)
	}
}

func TestExpandPath_Tilde(t *testing.T) {
	t.Setenv("HOME", "/home/rpc")

	assert.Equal(t, "/home/rpc/data/db.sqlite", ExpandPath("~/data/db.sqlite"))
}

func TestExpandPath_RespectsXDGVariable(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/srv/data")

	assert.Equal(t, "/srv/data/jsonrpcd/db.sqlite", ExpandPath("$XDG_DATA_HOME/jsonrpcd/db.sqlite"))
	assert.Equal(t, "/srv/data/jsonrpcd/db.sqlite", DefaultDatabasePath())
}

func TestEnsureParent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "deeper", "db.sqlite")

	require.NoError(t, EnsureParent("XDG_DATA_HOME", target))
	info, err := os.Stat(filepath.Dir(target))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureParent_FileInTheWay(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := EnsureParent("XDG_DATA_HOME", filepath.Join(blocker, "sub", "db.sqlite"))
	require.Error(t, err)

	var pathErr *errors.XDGPathError
	require.True(t, stderrors.As(err, &pathErr))
	assert.Equal(t, "XDG_DATA_HOME", pathErr.Variable)
}
