package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryAt(ts time.Time, source, msg string) *Entry {
	return &Entry{Timestamp: ts, Level: LevelInfo, Logger: "x", Message: msg, Source: source}
}

func TestMerge_Chronological(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	a := []*Entry{
		entryAt(base, "a", "a0"),
		entryAt(base.Add(2*time.Second), "a", "a2"),
	}
	b := []*Entry{
		entryAt(base.Add(time.Second), "b", "b1"),
		entryAt(base.Add(3*time.Second), "b", "b3"),
	}

	merged := Merge([][]*Entry{a, b})
	require.Len(t, merged, 4)
	assert.Equal(t, []string{"a0", "b1", "a2", "b3"}, messages(merged))
}

func TestMerge_StableAcrossSources(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	first := []*Entry{entryAt(ts, "first", "f1"), entryAt(ts, "first", "f2")}
	second := []*Entry{entryAt(ts, "second", "s1")}
	third := []*Entry{entryAt(ts.Add(-time.Second), "third", "t0"), entryAt(ts, "third", "t1")}

	merged := Merge([][]*Entry{first, second, third})
	assert.Equal(t, []string{"t0", "f1", "f2", "s1", "t1"}, messages(merged))
}

func TestMerge_UnparsedLast(t *testing.T) {
	late := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	early := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

	a := []*Entry{
		entryAt(Unparsed, "a", "bad1"),
		entryAt(late, "a", "late"),
	}
	b := []*Entry{
		entryAt(Unparsed, "b", "bad2"),
		entryAt(early, "b", "early"),
	}

	merged := Merge([][]*Entry{a, b})
	assert.Equal(t, []string{"early", "late", "bad1", "bad2"}, messages(merged))
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	a := []*Entry{entryAt(base.Add(time.Second), "a", "later"), entryAt(base, "a", "earlier")}

	merged := Merge([][]*Entry{a})
	assert.Equal(t, []string{"earlier", "later"}, messages(merged))
	assert.Equal(t, []string{"later", "earlier"}, messages(a))
	assert.Same(t, a[0], merged[1])
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(nil))
	assert.Empty(t, Merge([][]*Entry{nil, {}}))
}

func TestLoggers(t *testing.T) {
	entries := []*Entry{
		{Logger: "b"}, {Logger: "a"}, {Logger: "b"}, {Logger: ""},
	}
	assert.Equal(t, []string{"", "a", "b"}, Loggers(entries))
	assert.Empty(t, Loggers(nil))
}

func messages(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}
