package order

import (
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("shipped", "2024-03-01T10:00:00Z", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, f.Status)
	require.NotNil(t, f.StartDate)
	assert.Equal(t, 10, f.StartDate.Hour())
	require.NotNil(t, f.EndDate)
	assert.Equal(t, time.Date(2024, 3, 1, 23, 59, 59, 999999999, time.UTC), *f.EndDate)

	open, err := ParseFilter("", "", " ")
	require.NoError(t, err)
	assert.Equal(t, Filter{}, open)
}

func TestParseFilterRejects(t *testing.T) {
	_, err := ParseFilter("lost", "", "")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	assert.Equal(t, `invalid status "lost"`, errs.MessageOf(err))

	_, err = ParseFilter("", "yesterday", "")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	assert.Contains(t, errs.MessageOf(err), "startDate")
}

func TestFilterMatches(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	o := Order{CustomerID: "c1", Status: StatusPending, CreatedAt: start.Add(time.Hour)}

	assert.True(t, Filter{CustomerID: "c1", StartDate: &start}.Matches(o))
	assert.False(t, Filter{Status: StatusShipped}.Matches(o))
	assert.False(t, Filter{EndDate: &start}.Matches(o))
}
