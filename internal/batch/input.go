package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdinSentinel selects standard input as the identifier source.
const StdinSentinel = "-"

// ReadIdentifiers reads a line-delimited identifier list from path, or
// from stdin when path is the sentinel. Blank lines and lines starting
// with '#' are skipped. An unreadable source is fatal; callers invoke
// this before any store interaction begins.
func ReadIdentifiers(path string) ([]string, error) {
	if path == StdinSentinel {
		return scanIdentifiers(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read identifier file: %w", err)
	}
	defer f.Close()
	ids, err := scanIdentifiers(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read identifier file %s: %w", path, err)
	}
	return ids, nil
}

func scanIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
