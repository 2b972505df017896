package spawn

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// TailFile returns the last n lines of path, or a short diagnostic
// string if the file cannot be read -- failures here should never mask
// the original error being decorated.
func TailFile(path string, n int) string {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("(could not read %s: %v)", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return strings.Join(lines, "\n")
}

// TailAllLogs collects the tail of every *.log file under dir, sorted by
// path, for attaching to an init-time failure.
func TailAllLogs(dir string, linesEach int) string {
	var matches []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".log") {
			matches = append(matches, path)
		}
		return nil
	})
	sort.Strings(matches)

	var b strings.Builder
	for _, path := range matches {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", path, TailFile(path, linesEach))
	}
	return b.String()
}

// ReadPid reads the pid recorded at path, as left by a previous Spawn.
func ReadPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pid, nil
}
