package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/loglens/pkg/parser"
)

func fixture() []*parser.Entry {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	mk := func(offset time.Duration, level parser.Level, logger string) *parser.Entry {
		return &parser.Entry{Timestamp: base.Add(offset), Level: level, Logger: logger}
	}
	return []*parser.Entry{
		mk(0, parser.LevelInfo, "com.App"),
		mk(time.Minute, parser.LevelError, "com.Db"),
		mk(2*time.Minute, parser.LevelError, "com.Db"),
		mk(3*time.Minute, parser.LevelWarn, "net.Http"),
		mk(90*time.Minute, parser.LevelInfo, "com.App"),
		{Timestamp: parser.Unparsed, Level: parser.LevelDebug, Logger: "zz"},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixture())

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 1, s.Unparsed)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), s.First)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC), s.Last)
	assert.Equal(t, 90*time.Minute, s.Duration)
	assert.Equal(t, 4, s.DistinctLoggers())

	require.Len(t, s.Levels, 4)
	assert.Equal(t, LevelCount{Level: parser.LevelInfo, Count: 2, Percent: 200.0 / 6}, s.Levels[0])
	assert.Equal(t, parser.LevelDebug, s.Levels[3].Level)
	assert.Equal(t, 1, s.Levels[3].Count)

	assert.Equal(t, []LoggerCount{
		{"com.App", 2}, {"com.Db", 2}, {"net.Http", 1}, {"zz", 1},
	}, s.Loggers)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.True(t, s.First.IsZero())
	assert.Zero(t, s.Duration)
	for _, lc := range s.Levels {
		assert.Zero(t, lc.Percent)
	}
}

func TestLoggerCounts(t *testing.T) {
	entries := fixture()

	all := LoggerCounts(entries, nil, "")
	assert.Len(t, all, 4)

	errorsOnly := LoggerCounts(entries, map[parser.Level]bool{parser.LevelError: true}, "")
	assert.Equal(t, []LoggerCount{{"com.Db", 2}}, errorsOnly)

	byName := LoggerCounts(entries, nil, "COM.")
	assert.Equal(t, []LoggerCount{{"com.App", 2}, {"com.Db", 2}}, byName)
}

func TestTopLoggers(t *testing.T) {
	entries := fixture()

	assert.Equal(t, []string{"com.App", "com.Db"}, TopLoggers(entries, nil, 2))
	assert.Equal(t, []string{"com.App", "com.Db", "net.Http", "zz"}, TopLoggers(entries, nil, 10))
	assert.Equal(t, []string{"net.Http"},
		TopLoggers(entries, map[parser.Level]bool{parser.LevelWarn: true}, 5))
	assert.Nil(t, TopLoggers(entries, nil, 0))
}
