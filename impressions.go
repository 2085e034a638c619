package rerankkit

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Impression is one user's candidate slate as produced by an upstream ranking
// model: item ids in model order with the model's relevance scores, plus
// ground-truth click labels when the slate comes from a labeled split.
type Impression struct {
	UserID  string
	ItemIDs []string
	// Scores are raw model scores aligned with ItemIDs. They do not need to
	// be normalized; reranking normalizes per user.
	Scores []float32
	// Labels are relevance labels aligned with ItemIDs (0 = not clicked).
	// Nil means the slate is unlabeled and is excluded from NDCG.
	Labels []int
}

func (imp Impression) validate() error {
	if imp.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if len(imp.ItemIDs) == 0 {
		return fmt.Errorf("impression %q: candidate items are required", imp.UserID)
	}
	if len(imp.Scores) != len(imp.ItemIDs) {
		return fmt.Errorf("impression %q: %d scores for %d items", imp.UserID, len(imp.Scores), len(imp.ItemIDs))
	}
	if imp.Labels != nil && len(imp.Labels) != len(imp.ItemIDs) {
		return fmt.Errorf("impression %q: %d labels for %d items", imp.UserID, len(imp.Labels), len(imp.ItemIDs))
	}
	seen := make(map[string]struct{}, len(imp.ItemIDs))
	for _, id := range imp.ItemIDs {
		if id == "" {
			return fmt.Errorf("impression %q: item id is required", imp.UserID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("impression %q: duplicate item id %q", imp.UserID, id)
		}
		seen[id] = struct{}{}
	}
	for _, l := range imp.Labels {
		if l < 0 {
			return fmt.Errorf("impression %q: negative label %d", imp.UserID, l)
		}
	}
	return nil
}

func validateImpressions(imps []Impression) error {
	if len(imps) == 0 {
		return fmt.Errorf("impressions are required")
	}
	seen := make(map[string]struct{}, len(imps))
	for _, imp := range imps {
		if err := imp.validate(); err != nil {
			return err
		}
		if _, dup := seen[imp.UserID]; dup {
			return fmt.Errorf("duplicate impression for user %q", imp.UserID)
		}
		seen[imp.UserID] = struct{}{}
	}
	return nil
}

// LoadImpressionsTSV reads the interchange format written by the model side:
// one candidate per line, "user_id <TAB> item_id <TAB> score" with an optional
// fourth label column. Lines are grouped into one Impression per user, users
// ordered by first appearance and items in line order. A user must be labeled
// on all of its lines or none of them.
func LoadImpressionsTSV(r io.Reader) ([]Impression, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var imps []Impression
	index := make(map[string]int)
	seenItems := make(map[string]map[string]struct{})

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 3 || len(fields) > 4 {
			return nil, fmt.Errorf("impressions line %d: expected 3 or 4 tab-separated fields, got %d", lineNo, len(fields))
		}
		userID := fields[0]
		itemID := fields[1]
		if userID == "" {
			return nil, fmt.Errorf("impressions line %d: user id is required", lineNo)
		}
		if itemID == "" {
			return nil, fmt.Errorf("impressions line %d: item id is required", lineNo)
		}
		score, err := strconv.ParseFloat(fields[2], 32)
		if err != nil {
			return nil, fmt.Errorf("impressions line %d: parse score %q: %w", lineNo, fields[2], err)
		}
		labeled := len(fields) == 4
		label := 0
		if labeled {
			label, err = strconv.Atoi(fields[3])
			if err != nil {
				return nil, fmt.Errorf("impressions line %d: parse label %q: %w", lineNo, fields[3], err)
			}
			if label < 0 {
				return nil, fmt.Errorf("impressions line %d: negative label %d", lineNo, label)
			}
		}

		i, ok := index[userID]
		if !ok {
			i = len(imps)
			index[userID] = i
			imps = append(imps, Impression{UserID: userID})
			seenItems[userID] = make(map[string]struct{})
		}
		if _, dup := seenItems[userID][itemID]; dup {
			return nil, fmt.Errorf("impressions line %d: duplicate item %q for user %q", lineNo, itemID, userID)
		}
		seenItems[userID][itemID] = struct{}{}

		imp := &imps[i]
		wasLabeled := imp.Labels != nil
		hadItems := len(imp.ItemIDs) > 0
		if hadItems && wasLabeled != labeled {
			return nil, fmt.Errorf("impressions line %d: user %q mixes labeled and unlabeled lines", lineNo, userID)
		}
		imp.ItemIDs = append(imp.ItemIDs, itemID)
		imp.Scores = append(imp.Scores, float32(score))
		if labeled {
			imp.Labels = append(imp.Labels, label)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read impressions: %w", err)
	}
	if len(imps) == 0 {
		return nil, fmt.Errorf("no impression lines")
	}
	return imps, nil
}
