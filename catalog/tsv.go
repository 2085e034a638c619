package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// LoadTSV parses a MIND-style news table: one item per line with at least
// four tab-separated columns (item_id, category, subcategory, title, ...).
// Only the id and title columns are kept. Titles may contain quotes and
// commas, so the format is split on raw tabs rather than parsed as CSV.
//
// Duplicate ids keep the first row. Blank lines are skipped.
func LoadTSV(r io.Reader) (*MapCatalog, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	titles := make(map[string]string)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 4 {
			return nil, fmt.Errorf("catalog line %d: expected at least 4 tab-separated columns, got %d", lineNo, len(cols))
		}
		id := strings.TrimSpace(cols[0])
		if id == "" {
			return nil, fmt.Errorf("catalog line %d: item id is required", lineNo)
		}
		if _, dup := titles[id]; dup {
			continue
		}
		titles[id] = strings.TrimSpace(cols[3])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return NewMapCatalog(titles)
}
