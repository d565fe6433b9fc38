package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath expands ~ and returns a cleaned absolute path.
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path cannot be empty")
	}

	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New("failed to retrieve home directory")
		}
		path = strings.Replace(path, "~", homeDir, 1)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return filepath.Clean(absPath), nil
}

// NormalizeRelPath converts a tree path to forward slashes with no leading
// or trailing separators. Tree paths are always slash separated, regardless
// of the host OS.
func NormalizeRelPath(path string) string {
	path = filepath.ToSlash(path)
	return strings.Trim(path, "/")
}

// ParentPath returns the parent of a normalized tree path, or "" for a
// top-level path.
func ParentPath(path string) string {
	path = NormalizeRelPath(path)
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// PathDepth returns the number of ancestors of a normalized tree path.
func PathDepth(path string) int {
	path = NormalizeRelPath(path)
	if path == "" {
		return 0
	}
	return strings.Count(path, "/")
}

func EnsureParent(path string) error {
	return EnsureDir(filepath.Dir(path))
}

func EnsureDir(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
