package sqlutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidTableName(t *testing.T) {
	assert.True(t, ValidTableName("reference_items"))
	assert.True(t, ValidTableName("_refs2"))
	assert.False(t, ValidTableName("refs; DROP TABLE x"))
	assert.False(t, ValidTableName("1refs"))
	assert.False(t, ValidTableName(""))
}

func TestFormatParseRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	assert.Equal(t, "2026-03-14T09:26:53", FormatTime(now))
	assert.Equal(t, now, ParseTime(FormatTime(now)))
}

func TestParseTimeMalformed(t *testing.T) {
	assert.True(t, ParseTime("not-a-time").IsZero())
	assert.True(t, ParseTime("").IsZero())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}

func TestScoreOrNull(t *testing.T) {
	assert.Equal(t, 85, ScoreOrNull(" 85 "))
	assert.Nil(t, ScoreOrNull("high"))
	assert.Nil(t, ScoreOrNull(""))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: reference_items.brand (2067)")))
	assert.False(t, IsUniqueViolation(errors.New("no such table: reference_items")))
	assert.False(t, IsUniqueViolation(nil))
}
