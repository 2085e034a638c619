package embedding

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LoadGloVe parses a GloVe-style text table: one token per line followed by
// its space-separated vector components. The first data line fixes the
// dimension; any later line with a different dimension is an error, so shape
// problems surface at load time instead of mid-evaluation.
//
// A word2vec-style "count dim" header line is tolerated and skipped. Blank
// lines are ignored. Duplicate tokens keep the last vector, matching the
// common convention for patched embedding files.
func LoadGloVe(r io.Reader) (*Store, error) {
	sc := bufio.NewScanner(r)
	// Long vocabulary entries plus a few hundred components can exceed the
	// default scanner limit.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var store *Store
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if store == nil && lineNo == 1 && len(fields) == 2 {
			if _, err1 := strconv.Atoi(fields[0]); err1 == nil {
				if _, err2 := strconv.Atoi(fields[1]); err2 == nil {
					continue
				}
			}
		}

		if len(fields) < 2 {
			return nil, fmt.Errorf("embedding line %d: expected token and vector", lineNo)
		}

		token := fields[0]
		comps := fields[1:]
		if store == nil {
			var err error
			store, err = NewStore(len(comps))
			if err != nil {
				return nil, fmt.Errorf("embedding line %d: %w", lineNo, err)
			}
		}
		if len(comps) != store.Dimensions() {
			return nil, fmt.Errorf("embedding line %d: expected %d dimensions, got %d", lineNo, store.Dimensions(), len(comps))
		}

		vec := make([]float32, len(comps))
		for i, c := range comps {
			f, err := strconv.ParseFloat(c, 32)
			if err != nil {
				return nil, fmt.Errorf("embedding line %d: parse component %d: %w", lineNo, i+1, err)
			}
			vec[i] = float32(f)
		}
		if err := store.Add(token, vec); err != nil {
			return nil, fmt.Errorf("embedding line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read embedding table: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("embedding table is empty")
	}
	return store, nil
}
