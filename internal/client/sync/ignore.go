package sync

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/vaultdrive/vaultdrive/internal/utils"
)

const ignoreFileName = "vaultignore"

var defaultIgnoreLines = []string{
	// vaultdrive
	ignoreFileName,
	".vaultdrive/",
	// python
	".ipynb_checkpoints/",
	"__pycache__/",
	"*.py[cod]",
	"venv/",
	".venv/",
	// IDE/Editor-specific
	".vscode",
	".idea",
	"*.swp",
	// General excludes
	".git",
	"*.tmp",
	"*.part",
	"*.log",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
}

// IgnoreList decides which vault paths never enter the journal. Rules are
// gitignore syntax, the defaults plus an optional vaultignore file at the
// vault root.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string) *IgnoreList {
	l := &IgnoreList{baseDir: baseDir}
	l.Load()
	return l
}

// Load recompiles the rule set, picking up edits to the vaultignore file.
func (l *IgnoreList) Load() {
	ignorePath := filepath.Join(l.baseDir, ignoreFileName)
	lines := make([]string, len(defaultIgnoreLines))
	copy(lines, defaultIgnoreLines)

	if utils.FileExists(ignorePath) {
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open vaultignore", "path", ignorePath, "error", err)
		} else {
			defer file.Close()
			rules := 0
			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					lines = append(lines, line)
					rules++
				}
			}
			if err := scanner.Err(); err != nil {
				slog.Warn("error reading vaultignore", "path", ignorePath, "error", err)
			} else {
				slog.Debug("loaded vaultignore", "path", ignorePath, "rules", rules)
			}
		}
	}

	l.ignore = gitignore.CompileIgnoreLines(lines...)
}

// ShouldIgnore reports whether a vault-relative path matches the rule set.
func (l *IgnoreList) ShouldIgnore(relPath string) bool {
	return l.ignore.MatchesPath(relPath)
}
