package pg

import (
	"context"
	"strings"
	"testing"

	"github.com/feedlab-org/rerankkit/eval"
)

func TestQuoteIdent(t *testing.T) {
	if q, err := quoteIdent("rerank_schema"); err != nil || q != `"rerank_schema"` {
		t.Fatalf("got %q, %v", q, err)
	}
	for _, bad := range []string{"", "  ", `pub"lic`, "a.b", "a;drop", "sp ace"} {
		if _, err := quoteIdent(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := quoteLiteral("it's"); got != "'it''s'" {
		t.Fatalf("got %q", got)
	}
}

func TestHalfvecType(t *testing.T) {
	if got := HalfvecType(384); got != "halfvec(384)" {
		t.Fatalf("got %q", got)
	}
}

func TestIndexSuffix(t *testing.T) {
	a := indexSuffix("bge-m3", 1024)
	b := indexSuffix("bge-m3", 512)
	if a == b {
		t.Fatalf("suffix should depend on dims")
	}
	if a != indexSuffix("bge-m3", 1024) {
		t.Fatalf("suffix should be stable")
	}
	if len(a) != 16 {
		t.Fatalf("suffix length = %d", len(a))
	}
}

func TestUpsertItemVectors_Validation(t *testing.T) {
	ctx := context.Background()
	vecs := map[string][]float32{"n1": {1, 0}}

	if err := UpsertItemVectors(ctx, nil, "s", "m", 2, vecs); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestLoadItemVectors_Validation(t *testing.T) {
	if _, err := LoadItemVectors(context.Background(), nil, "s", "m"); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestFilterMissingItemVectors_Validation(t *testing.T) {
	if _, err := FilterMissingItemVectors(context.Background(), nil, "s", "m", []string{"n1"}); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestNearestItems_Validation(t *testing.T) {
	if _, err := NearestItems(context.Background(), nil, "s", "m", "n1", 5, NearestOptions{}); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestUpsertModels_Validation(t *testing.T) {
	if err := UpsertModels(context.Background(), nil, "s", nil); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestEnsureModelIndexes_Validation(t *testing.T) {
	if err := EnsureModelIndexes(context.Background(), nil, "s", "m", 2); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestInsertRun_Validation(t *testing.T) {
	if _, err := InsertRun(context.Background(), nil, "s", RunSpec{Model: "m", K: 5, Lambdas: []float32{1}}); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestInsertSeries_Validation(t *testing.T) {
	series := eval.Series{{Lambda: 1, Value: 0.9}}
	if err := InsertSeries(context.Background(), nil, "s", 1, MetricNDCG, series); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestLoadSeries_Validation(t *testing.T) {
	if _, err := LoadSeries(context.Background(), nil, "s", 1, MetricDiversity); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestValidationMessages(t *testing.T) {
	// Argument errors should name the offending argument, since the same
	// helpers back several call sites.
	err := UpsertItemVectors(context.Background(), nil, "s", "m", 2, map[string][]float32{"n1": {1, 0}})
	if err == nil || !strings.Contains(err.Error(), "pool") {
		t.Fatalf("got %v", err)
	}
	_, err = LoadItemVectors(context.Background(), nil, "bad.schema", "m")
	if err == nil || !strings.Contains(err.Error(), "pool") {
		t.Fatalf("got %v", err)
	}
}
