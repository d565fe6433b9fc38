package sync

import (
	gitignore "github.com/sabhiram/go-gitignore"
)

var defaultPriorityLines = []string{
	"**/*.request",
	"**/*.response",
	"**/*.lock",
}

// PriorityList marks paths whose journal entries should push ahead of the
// rest within a phase. Patterns are gitignore syntax.
type PriorityList struct {
	priority *gitignore.GitIgnore
}

func NewPriorityList(extra ...string) *PriorityList {
	lines := make([]string, 0, len(defaultPriorityLines)+len(extra))
	lines = append(lines, defaultPriorityLines...)
	lines = append(lines, extra...)
	return &PriorityList{priority: gitignore.CompileIgnoreLines(lines...)}
}

// ShouldPrioritize reports whether a vault-relative path is high priority.
func (l *PriorityList) ShouldPrioritize(relPath string) bool {
	return l.priority.MatchesPath(relPath)
}

// SortByPriority stably partitions ops so prioritized paths come first.
func (l *PriorityList) SortByPriority(ops []Operation) []Operation {
	high := make([]Operation, 0, len(ops))
	rest := make([]Operation, 0, len(ops))
	for _, op := range ops {
		if l.ShouldPrioritize(op.Path) {
			high = append(high, op)
		} else {
			rest = append(rest, op)
		}
	}
	return append(high, rest...)
}
