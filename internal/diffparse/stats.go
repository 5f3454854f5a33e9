package diffparse

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// FileStat summarises one file of a diff.
type FileStat struct {
	Path    string `json:"path"`
	Added   int    `json:"added"`
	Deleted int    `json:"deleted"`
}

// Stats returns per-file line counts for diff. It is used for report
// summaries only; line anchoring always goes through Parse.
func Stats(diff string) ([]FileStat, error) {
	if strings.TrimSpace(diff) == "" {
		return nil, nil
	}
	fds, err := godiff.ParseMultiFileDiff([]byte(diff))
	if err != nil {
		return nil, fmt.Errorf("parsing diff stats: %w", err)
	}
	stats := make([]FileStat, 0, len(fds))
	for _, fd := range fds {
		s := fd.Stat()
		stats = append(stats, FileStat{
			Path:    statPath(fd),
			Added:   int(s.Added + s.Changed),
			Deleted: int(s.Deleted + s.Changed),
		})
	}
	return stats, nil
}

func statPath(fd *godiff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "b/")
	return strings.TrimPrefix(name, "a/")
}
