package sync

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is an optional gitignore-style file at the watched root
// whose patterns extend the built-in junk list.
const IgnoreFileName = ".driveboxignore"

var defaultIgnoreLines = []string{
	".drivebox",
	".drivebox/",
	IgnoreFileName,

	// OS junk
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"Icon",

	// editor droppings
	"*.swp",
	"*.swo",
	"*~",
	".#*",
	"#*#",

	// general excludes
	"*.tmp",
	"*.partial",
	"*.crdownload",
}

// IgnoreList filters paths that must never be synced: the client's own
// metadata directory, OS junk and editor temp files.
type IgnoreList struct {
	ignore *gitignore.GitIgnore
}

// NewIgnoreList builds the ignore list for a watched root, merging the
// defaults with the root's .driveboxignore if present.
func NewIgnoreList(root string) *IgnoreList {
	lines := append([]string{}, defaultIgnoreLines...)

	if data, err := os.ReadFile(filepath.Join(root, IgnoreFileName)); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			lines = append(lines, line)
		}
	}

	return &IgnoreList{ignore: gitignore.CompileIgnoreLines(lines...)}
}

// ShouldIgnore reports whether the relative path matches any ignore pattern.
func (l *IgnoreList) ShouldIgnore(relPath string) bool {
	return l.ignore.MatchesPath(relPath)
}
