package query

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwatch/trainview/internal/testutil"
)

// 25 trains, ids 1..25, one minute apart, speed equal to id.
func fixture(t *testing.T) testutil.Handle {
	t.Helper()
	trains := make([]testutil.Train, 25)
	for i := range trains {
		trains[i] = testutil.Train{
			SpeedPxS: float64(i + 1),
			LengthPx: 100,
			PxPerM:   2,
		}
	}
	return testutil.Snapshot{Trains: trains}.Open(t)
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestList_DefaultOrderAndCounts(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)

	res, err := b.List(context.Background(), h, 5, 0, Filter{})
	require.NoError(t, err)
	require.Len(t, res.Trains, 5)
	assert.Equal(t, int64(25), res.FilteredCount)
	assert.Equal(t, int64(25), res.TotalCount)

	// newest first
	assert.Equal(t, int64(25), res.Trains[0].ID())
	assert.Equal(t, int64(21), res.Trains[4].ID())
	assert.Equal(t, 5, res.PageCount(5))
}

func TestList_LimitZeroReturnsOnlyCounts(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)

	f := NewFilter().With("fast", "speed_px_s > 20")
	res, err := b.List(context.Background(), h, 0, 0, f)
	require.NoError(t, err)
	assert.NotNil(t, res.Trains)
	assert.Empty(t, res.Trains)
	assert.Equal(t, int64(5), res.FilteredCount)
	assert.Equal(t, int64(25), res.TotalCount)
}

func TestList_FiltersAreConjoined(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)

	f := NewFilter().
		With("min", "speed_px_s >= 10").
		With("max", "speed_px_s < 15 OR speed_px_s > 100")
	res, err := b.List(context.Background(), h, 100, 0, f)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.FilteredCount)
	for _, tr := range res.Trains {
		assert.GreaterOrEqual(t, tr.SpeedPxS(), 10.0)
		assert.Less(t, tr.SpeedPxS(), 15.0)
	}
}

func TestList_PagesCoverFilteredRowsExactly(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)
	f := NewFilter().With("odd", "id % 2 = 1")

	const limit = 4
	seen := map[int64]bool{}
	var total int64
	for offset := 0; ; offset += limit {
		res, err := b.List(context.Background(), h, limit, offset, f)
		require.NoError(t, err)
		total = res.FilteredCount
		for _, tr := range res.Trains {
			assert.False(t, seen[tr.ID()], "duplicate id %d", tr.ID())
			seen[tr.ID()] = true
		}
		if len(res.Trains) < limit {
			break
		}
	}
	assert.Equal(t, int64(13), total)
	assert.Len(t, seen, int(total))
}

func TestList_CustomOrder(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)

	res, err := b.List(context.Background(), h, 3, 0, NewFilter().OrderBy("speed_px_s ASC"))
	require.NoError(t, err)
	require.Len(t, res.Trains, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{res.Trains[0].ID(), res.Trains[1].ID(), res.Trains[2].ID()})
}

func TestList_OffsetPastEnd(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)

	res, err := b.List(context.Background(), h, 10, 100, Filter{})
	require.NoError(t, err)
	assert.Empty(t, res.Trains)
	assert.Equal(t, int64(25), res.FilteredCount)
}

func TestList_InvalidPage(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)

	_, err := b.List(context.Background(), h, -1, 0, Filter{})
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = b.List(context.Background(), h, 1, -1, Filter{})
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestList_MalformedFragment(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)

	_, err := b.List(context.Background(), h, 1, 0, NewFilter().With("bad", "no_such_column = 1"))
	assert.Error(t, err)
}

func TestGetByID(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)

	tr, ok, err := b.GetByID(context.Background(), h, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), tr.ID())
	assert.Equal(t, 7.0, tr.SpeedPxS())
	assert.Equal(t, 50.0, tr.LengthM())

	tr, ok, err = b.GetByID(context.Background(), h, 999)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, tr.IsZero())
}

func TestRowConversion_KeepsStoredOffset(t *testing.T) {
	cest := time.FixedZone("", 2*60*60)
	start := time.Date(2023, 7, 14, 18, 30, 15, 250_000_000, cest)
	uploaded := time.Date(2023, 7, 14, 16, 45, 0, 0, time.UTC)

	h := testutil.Snapshot{Trains: []testutil.Train{
		{ID: 1, Start: start, Duration: 12 * time.Second, UploadedAt: &uploaded},
		{ID: 2},
	}}.Open(t)
	b := newBuilder(t)

	tr, ok, err := b.GetByID(context.Background(), h, 1)
	require.NoError(t, err)
	require.True(t, ok)

	_, offset := tr.StartTS().Zone()
	assert.Equal(t, 2*60*60, offset)
	assert.True(t, start.Equal(tr.StartTS()))
	assert.Equal(t, 12*time.Second, tr.Duration())

	up, ok := tr.UploadedAt()
	require.True(t, ok)
	assert.True(t, uploaded.Equal(up))

	tr, ok, err = b.GetByID(context.Background(), h, 2)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok = tr.UploadedAt()
	assert.False(t, ok)
}

func TestPages(t *testing.T) {
	h := fixture(t)
	b := newBuilder(t)

	var ids []int64
	calls := 0
	err := b.Pages(context.Background(), h, 10, NewFilter().With("slow", "speed_px_s <= 20"), func(res Result) error {
		calls++
		for _, tr := range res.Trains {
			ids = append(ids, tr.ID())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, ids, 20)
	assert.Equal(t, int64(20), ids[0])

	assert.ErrorIs(t, b.Pages(context.Background(), h, 0, Filter{}, nil), ErrInvalidPage)
}

func TestPageSQL(t *testing.T) {
	f := NewFilter().With("a", "x = 1").With("b", "y = 2 OR z = 3")
	assert.Equal(t,
		"SELECT * FROM trains_v2 WHERE (x = 1) AND (y = 2 OR z = 3) ORDER BY start_ts DESC, id DESC LIMIT 10 OFFSET 20",
		pageSQL(f, 10, 20))
	assert.Equal(t, "SELECT COUNT(*) FROM trains_v2", countSQL(Filter{}))
}
