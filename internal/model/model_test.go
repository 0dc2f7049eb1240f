package model

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_KeepsOffset(t *testing.T) {
	ts, err := ParseTimestamp("2023-06-01 14:05:09.123+02:00")
	require.NoError(t, err)

	_, offset := ts.Zone()
	assert.Equal(t, 2*60*60, offset)
	assert.Equal(t, 14, ts.Hour())
	assert.Equal(t, 123*int(time.Millisecond), ts.Nanosecond())
}

func TestParseTimestamp_Layouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2023-06-01 14:05:09Z", time.Date(2023, 6, 1, 14, 5, 9, 0, time.UTC)},
		{"2023-06-01T14:05:09Z", time.Date(2023, 6, 1, 14, 5, 9, 0, time.UTC)},
		{"2023-06-01T14:05:09.5-05:00", time.Date(2023, 6, 1, 19, 5, 9, 5e8, time.UTC)},
		{"2023-06-01 14:05:09", time.Date(2023, 6, 1, 14, 5, 9, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}
}

func TestParseTimestamp_Garbage(t *testing.T) {
	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestTimestamp_Scan(t *testing.T) {
	var ts Timestamp
	require.NoError(t, ts.Scan("2023-06-01 14:05:09+01:00"))
	_, offset := ts.Zone()
	assert.Equal(t, 3600, offset)

	require.NoError(t, ts.Scan([]byte("2023-06-01 14:05:09Z")))
	assert.Equal(t, time.UTC, ts.Location())

	now := time.Now()
	require.NoError(t, ts.Scan(now))
	assert.True(t, now.Equal(ts.Time))

	assert.ErrorIs(t, ts.Scan(nil), ErrNullTimestamp)
	assert.Error(t, ts.Scan(42))
}

func TestNullTimestamp_Scan(t *testing.T) {
	var nt NullTimestamp
	require.NoError(t, nt.Scan(nil))
	assert.False(t, nt.Valid)

	require.NoError(t, nt.Scan("2023-06-01 14:05:09Z"))
	assert.True(t, nt.Valid)

	v, err := NullTimestamp{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTimestamp_ValueRoundTrip(t *testing.T) {
	zone := time.FixedZone("", -3*60*60)
	in := Timestamp{time.Date(2022, 12, 31, 23, 59, 58, 250e6, zone)}

	v, err := in.Value()
	require.NoError(t, err)
	assert.Equal(t, "2022-12-31 23:59:58.25-03:00", v)

	var out Timestamp
	require.NoError(t, out.Scan(v))
	assert.True(t, in.Equal(out.Time))
	_, offset := out.Zone()
	assert.Equal(t, -3*60*60, offset)
}

func testRow() TrainRow {
	zone := time.FixedZone("", 2*60*60)
	return TrainRow{
		ID:            7,
		StartTS:       Timestamp{time.Date(2023, 6, 1, 10, 0, 0, 0, zone)},
		EndTS:         Timestamp{time.Date(2023, 6, 1, 10, 0, 12, 0, zone)},
		NFrames:       180,
		LengthPx:      -2000,
		SpeedPxS:      -50,
		AccelPxS2:     1.5,
		PxPerM:        10,
		ImageFilePath: "train_20230601_100000+02:00.jpg",
		GIFFilePath:   "train_20230601_100000+02:00.gif",
	}
}

func TestTrainRow_ToTrain(t *testing.T) {
	row := testRow()
	train := row.ToTrain()

	assert.Equal(t, int64(7), train.ID())
	assert.True(t, row.StartTS.Equal(train.StartTS()))
	assert.Equal(t, 12*time.Second, train.Duration())
	assert.Equal(t, 180, train.NFrames())
	assert.Equal(t, "train_20230601_100000+02:00.jpg", train.ImageFilePath())
	assert.Equal(t, "train_20230601_100000+02:00.gif", train.GIFFilePath())
	assert.InDelta(t, 200.0, train.LengthM(), 1e-9)
	assert.InDelta(t, 5.0, train.SpeedMPS(), 1e-9)
	assert.InDelta(t, 18.0, train.SpeedKPH(), 1e-9)
	assert.InDelta(t, 0.15, train.AccelMPS2(), 1e-9)
	assert.Equal(t, "left", train.Direction())

	_, uploaded := train.UploadedAt()
	assert.False(t, uploaded)
	assert.False(t, train.IsZero())
	assert.True(t, Train{}.IsZero())
}

func TestTrainRow_ToTrain_IsDetachedFromRow(t *testing.T) {
	row := testRow()
	train := row.ToTrain()

	row.ID = 99
	row.ImageFilePath = "changed"

	assert.Equal(t, int64(7), train.ID())
	assert.Equal(t, "train_20230601_100000+02:00.jpg", train.ImageFilePath())
}

func TestTrain_MarshalJSON(t *testing.T) {
	row := testRow()
	row.UploadedAt = NullTimestamp{Time: time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC), Valid: true}

	b, err := jsoniter.Marshal(row.ToTrain())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, jsoniter.Unmarshal(b, &out))
	assert.Equal(t, float64(7), out["id"])
	assert.Equal(t, "2023-06-01T10:00:00+02:00", out["start_ts"])
	assert.Equal(t, "2023-06-02T00:00:00Z", out["uploaded_at"])
	assert.Equal(t, float64(-50), out["speed_px_s"])
}

func TestTrain_MarshalJSON_NotUploaded(t *testing.T) {
	b, err := jsoniter.Marshal(testRow().ToTrain())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"uploaded_at":null`)
}
