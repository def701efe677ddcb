package floor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		basement  bool
		high      bool
		low       bool
		floor     *int
		wantMatch bool
	}{
		{name: "basement with total", input: "B1/4층", basement: true, floor: intPtr(-1), wantMatch: true},
		{name: "qualitative high", input: "고/5층", high: true, floor: intPtr(5), wantMatch: true},
		{name: "middle floor", input: "3/5층", floor: intPtr(3), wantMatch: true},
		{name: "top floor", input: "5/5층", high: true, floor: intPtr(5), wantMatch: true},
		{name: "above total is not high", input: "7/5층", floor: intPtr(7), wantMatch: true},
		{name: "qualitative low is its own category", input: "저/4층", low: true, floor: intPtr(1), wantMatch: true},
		{name: "qualitative mid has no estimate", input: "중/12층", wantMatch: true},
		{name: "embedded in spec text", input: "아파트 · 84㎡ · 12/15층 · 남향", floor: intPtr(12), wantMatch: true},
		{name: "single basement word", input: "지하1층", basement: true, floor: intPtr(-1), wantMatch: true},
		{name: "single basement marker", input: "B2", basement: true, floor: intPtr(-2), wantMatch: true},
		{name: "single floor", input: "3층", floor: intPtr(3), wantMatch: true},
		{name: "semi-basement alone", input: "반지하", basement: true, floor: intPtr(-1), wantMatch: true},
		{name: "semi-basement with total", input: "반지하/3층", basement: true, floor: intPtr(-1), wantMatch: true},
		{name: "semi-basement with spaced floor", input: "반지하 2층", basement: true, floor: intPtr(-2), wantMatch: true},
		{name: "semi-basement word does not take the next pair", input: "반지하 3/5층", floor: intPtr(3), wantMatch: true},
		{name: "basement word does not take the next pair", input: "지하 3/5층", floor: intPtr(3), wantMatch: true},
		{name: "spaced basement word", input: "지하 2층", basement: true, floor: intPtr(-2), wantMatch: true},
		{name: "spaced separator", input: "2 / 4층", floor: intPtr(2), wantMatch: true},
		{name: "lowercase basement", input: "b1/4층", basement: true, floor: intPtr(-1), wantMatch: true},
		{name: "full-width digits", input: "３/５층", high: false, floor: intPtr(3), wantMatch: true},
		{name: "qualitative high spelled out", input: "고층/20층", high: true, floor: intPtr(20), wantMatch: true},
		{name: "no floor token", input: "원룸"},
		{name: "empty", input: ""},
		{name: "overflowing digits", input: "99999999999999999999999층"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := extract(tt.input)

			assert.Equal(t, tt.wantMatch, matched)
			assert.Equal(t, tt.basement, got.IsBasement, "IsBasement")
			assert.Equal(t, tt.high, got.IsHighFloor, "IsHighFloor")
			assert.Equal(t, tt.low, got.IsLowFloor, "IsLowFloor")
			assert.Equal(t, tt.floor, got.Floor, "Floor")
			assert.Equal(t, tt.input, got.RawText)
		})
	}
}

func TestExtract_AtMostOneCategory(t *testing.T) {
	inputs := []string{"B1/4층", "고/5층", "저/3층", "5/5층", "지하2층", "반지하", "3/5층"}
	for _, in := range inputs {
		d := Extract(in)
		flags := 0
		for _, f := range []bool{d.IsBasement, d.IsHighFloor, d.IsLowFloor} {
			if f {
				flags++
			}
		}
		assert.LessOrEqual(t, flags, 1, in)
	}
}

func TestExtractor_RecordsMisses(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_misses_total"})
	e := NewExtractor(zap.New(core), misses)

	e.Extract("원룸")
	e.Extract("B1/4층")
	e.Extract("")

	assert.Equal(t, float64(2), testutil.ToFloat64(misses))
	entries := logs.FilterMessage("floor text not recognized").All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "원룸", entries[0].ContextMap()["raw_text"])
	}
}

func TestNewExtractor_NilCollaborators(t *testing.T) {
	e := NewExtractor(nil, nil)
	d := e.Extract("not a floor")
	assert.Nil(t, d.Floor)
}
