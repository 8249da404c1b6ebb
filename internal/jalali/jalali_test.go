package jalali

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	testCases := []struct {
		gregorian time.Time
		expected  [3]int
	}{
		{time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), [3]int{1403, 1, 1}},
		{time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC), [3]int{1402, 12, 29}},
		{time.Date(2023, 3, 21, 0, 0, 0, 0, time.UTC), [3]int{1402, 1, 1}},
		{time.Date(2024, 9, 22, 0, 0, 0, 0, time.UTC), [3]int{1403, 7, 1}},
		{time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), [3]int{1403, 12, 30}},
		{time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), [3]int{1404, 1, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.gregorian.Format("2006-01-02"), func(t *testing.T) {
			y, m, d := Date(tc.gregorian)
			assert.Equal(t, tc.expected, [3]int{y, m, d})
		})
	}
}

func TestToTime_RoundTrip(t *testing.T) {
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365*8; i++ {
		g := start.AddDate(0, 0, i)
		y, m, d := Date(g)
		require.Equal(t, g, ToTime(y, m, d, time.UTC), "round trip of %s", g.Format("2006-01-02"))
	}
}

func TestIsLeap(t *testing.T) {
	assert.True(t, IsLeap(1403))
	assert.False(t, IsLeap(1402))
	assert.Equal(t, 30, DaysIn(1403, 12))
	assert.Equal(t, 29, DaysIn(1402, 12))
	assert.Equal(t, 31, DaysIn(1402, 6))
	assert.Equal(t, 30, DaysIn(1402, 7))
}

func TestDate_InLocation(t *testing.T) {
	irst := time.FixedZone("IRST", 3*3600+1800)
	// 21:00 UTC on the last day of 1402 is already Nowruz in Tehran
	eve := time.Date(2024, 3, 19, 21, 0, 0, 0, time.UTC)

	y, m, d := Date(eve)
	assert.Equal(t, [3]int{1402, 12, 29}, [3]int{y, m, d})
	y, m, d = Date(eve.In(irst))
	assert.Equal(t, [3]int{1403, 1, 1}, [3]int{y, m, d})
	assert.Equal(t, "1403/01/01", Format(eve.In(irst)))
	assert.Equal(t, irst, ToTime(1403, 1, 1, irst).Location())
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 3, 20, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "1403/01/01", Format(ts))
	assert.Equal(t, "۱ فروردین ۱۴۰۳", FormatLong(ts))
}

func TestParse(t *testing.T) {
	loc := time.FixedZone("IRST", 3*3600+1800)

	got, err := Parse("۱۴۰۳/۰۱/۰۱", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, loc), got)

	got, err = Parse("1403-07-01", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 9, 22, 0, 0, 0, 0, loc), got)

	for _, bad := range []string{"", "1403/13/01", "1402/12/30", "1403/01", "abc/01/01"} {
		_, err := Parse(bad, loc)
		assert.Error(t, err, bad)
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "۱۲۳ pages", FarsiDigits("123 pages"))
	assert.Equal(t, "123", LatinDigits("۱۲۳"))
	assert.Equal(t, "45", LatinDigits("٤٥"))
	assert.Equal(t, "2024", LatinDigits(FarsiDigits("2024")))
}
