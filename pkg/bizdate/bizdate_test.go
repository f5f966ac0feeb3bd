package bizdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeepsLocalCalendarDay(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	in := time.Date(2024, 3, 10, 1, 30, 0, 0, jakarta)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Normalize(in))
}

func TestParse(t *testing.T) {
	got, err := Parse("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", Format(got))

	for _, bad := range []string{"", "2024-02-30", "29/02/2024", "yesterday"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestAddDays(t *testing.T) {
	base := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-29", Format(AddDays(base, -1)))
	assert.Equal(t, "2024-02-23", Format(AddDays(base, -7)))
}
