package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateWeekdayIsMondayFirst(t *testing.T) {
	tests := []struct {
		date string
		want Weekday
	}{
		{"2025-06-02", Monday},
		{"2025-06-03", Tuesday},
		{"2025-06-01", Sunday},
		{"2025-06-07", Saturday},
		{"2024-02-29", Thursday},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := ParseDate(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Weekday())
		})
	}
}

func TestDateOrderingAndArithmetic(t *testing.T) {
	d, err := ParseDate("2025-12-31")
	require.NoError(t, err)

	next := d.AddDays(1)
	assert.Equal(t, "2026-01-01", next.String())
	assert.True(t, d.Before(next))
	assert.True(t, next.After(d))
	assert.False(t, d.Before(d))
	assert.Equal(t, "2025-12-30", d.AddDays(-1).String())
}

func TestDateOfUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	ts := time.Date(2025, 6, 1, 23, 30, 0, 0, loc)
	assert.Equal(t, "2025-06-01", DateOf(ts).String())
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("01/06/2025")
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(9, 30), got)
	assert.Equal(t, "09:30", got.String())

	got, err = ParseTimeOfDay("14:00:00")
	require.NoError(t, err)
	assert.Equal(t, Clock(14, 0), got)

	_, err = ParseTimeOfDay("14:00:15")
	assert.Error(t, err)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestTimeOfDayAdd(t *testing.T) {
	assert.Equal(t, Clock(10, 0), Clock(9, 30).Add(30*time.Minute))
	assert.Equal(t, "23:59", Clock(23, 29).Add(30*time.Minute).String())
	assert.False(t, Clock(23, 45).Add(30*time.Minute).Valid())
}

func TestParseWeekday(t *testing.T) {
	w, err := ParseWeekday("fri")
	require.NoError(t, err)
	assert.Equal(t, Friday, w)
	assert.Equal(t, 4, w.Index())

	_, err = ParseWeekday("friday")
	assert.Error(t, err)
	assert.Len(t, Weekdays(), 7)
}

func TestJSONRoundTripFormats(t *testing.T) {
	payload := struct {
		Date Date      `json:"date"`
		Time TimeOfDay `json:"time"`
	}{}

	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-06-01","time":"10:00"}`), &payload))
	assert.Equal(t, Date{Year: 2025, Month: time.June, Day: 1}, payload.Date)
	assert.Equal(t, Clock(10, 0), payload.Time)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-06-01","time":"10:00"}`, string(out))
}
