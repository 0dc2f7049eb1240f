// Package stats computes fixed aggregates over a snapshot.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/railwatch/trainview/internal/model"
)

// DefaultSpeedBinWidth is used by SpeedHistogram for non-positive widths.
const DefaultSpeedBinWidth = 10

// DayOfWeekLabels names the CountByDayOfWeek buckets. The week starts on Monday.
var DayOfWeekLabels = map[int64]string{
	0: "Mon",
	1: "Tue",
	2: "Wed",
	3: "Thu",
	4: "Fri",
	5: "Sat",
	6: "Sun",
}

// Handle is anything that exposes an opened snapshot database.
type Handle interface {
	DB() *gorm.DB
}

// Bucket is one (key, value) pair of a grouped aggregate.
type Bucket struct {
	Key   int64   `gorm:"column:bucket" json:"key"`
	Value float64 `gorm:"column:value" json:"value"`
}

// Queries runs the aggregates. It holds no state besides its clock.
type Queries struct {
	dialect goqu.DialectWrapper
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures Queries.
type Option func(*Queries)

// WithClock replaces time.Now for the rolling temperature window.
func WithClock(now func() time.Time) Option {
	return func(q *Queries) {
		q.now = now
	}
}

// New creates Queries.
func New(log zerolog.Logger, opts ...Option) *Queries {
	q := &Queries{
		dialect: goqu.Dialect("sqlite3"),
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

var (
	lengthM  = goqu.L("ABS(length_px / px_per_m)")
	speedKPH = goqu.L("ABS(speed_px_s / px_per_m * 3.6)")
)

// AvgLengthM is the mean train length in metres. 0 for an empty snapshot.
func (q *Queries) AvgLengthM(ctx context.Context, h Handle) (float64, error) {
	return q.average(ctx, h, lengthM)
}

// AvgSpeedKPH is the mean absolute speed in km/h. 0 for an empty snapshot.
func (q *Queries) AvgSpeedKPH(ctx context.Context, h Handle) (float64, error) {
	return q.average(ctx, h, speedKPH)
}

func (q *Queries) average(ctx context.Context, h Handle, expr exp.LiteralExpression) (float64, error) {
	ds := q.dialect.From(model.TrainsTable).Select(
		goqu.L("SUM(?) / COUNT(*)", expr),
	)
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build average query: %w", err)
	}

	var avg sql.NullFloat64
	if err := h.DB().WithContext(ctx).Raw(query, args...).Scan(&avg).Error; err != nil {
		return 0, fmt.Errorf("failed to compute average: %w", err)
	}
	return avg.Float64, nil
}

// CountByDayOfWeek counts trains per weekday, 0 being Monday and 6 Sunday.
func (q *Queries) CountByDayOfWeek(ctx context.Context, h Handle) ([]Bucket, error) {
	// strftime('%w') starts the week on Sunday
	return q.countBy(ctx, h, goqu.L("(CAST(strftime('%w', start_ts) AS INTEGER) + 6) % 7"))
}

// CountByHourOfDay counts trains per hour of the day.
func (q *Queries) CountByHourOfDay(ctx context.Context, h Handle) ([]Bucket, error) {
	return q.countBy(ctx, h, goqu.L("CAST(strftime('%H', start_ts) AS INTEGER)"))
}

// SpeedHistogram counts trains per speed bin of binWidth km/h. Each train falls
// into the bin whose lower edge is its speed rounded down to a multiple of binWidth.
func (q *Queries) SpeedHistogram(ctx context.Context, h Handle, binWidth int) ([]Bucket, error) {
	if binWidth <= 0 {
		binWidth = DefaultSpeedBinWidth
	}
	return q.countBy(ctx, h, goqu.L("CAST(? / ? AS INTEGER) * ?", speedKPH, binWidth, binWidth))
}

func (q *Queries) countBy(ctx context.Context, h Handle, bucket exp.LiteralExpression) ([]Bucket, error) {
	ds := q.dialect.From(model.TrainsTable).
		Select(
			bucket.As("bucket"),
			goqu.COUNT(goqu.Star()).As("value"),
		).
		GroupBy(goqu.C("bucket")).
		Order(goqu.C("bucket").Asc())
	return q.buckets(ctx, h, ds)
}

// TempPast24hAvg averages temperatures per hour of day over the 24 hours before
// now. A snapshot without temperature data yields an empty slice.
func (q *Queries) TempPast24hAvg(ctx context.Context, h Handle) ([]Bucket, error) {
	db := h.DB().WithContext(ctx)
	if !db.Migrator().HasTable(model.TemperaturesTable) {
		q.log.Debug().Msg("Snapshot has no temperature table")
		return []Bucket{}, nil
	}

	now := q.now().UTC().Format("2006-01-02 15:04:05")
	ds := q.dialect.From(model.TemperaturesTable).
		Select(
			goqu.L("CAST(strftime('%H', timestamp) AS INTEGER)").As("bucket"),
			goqu.L("ROUND(AVG(temp_deg_c))").As("value"),
		).
		Where(goqu.L("julianday(timestamp) >= julianday(?, '-24 hours')", now)).
		GroupBy(goqu.C("bucket")).
		Order(goqu.C("bucket").Asc())
	return q.buckets(ctx, h, ds)
}

func (q *Queries) buckets(ctx context.Context, h Handle, ds *goqu.SelectDataset) ([]Bucket, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build aggregate query: %w", err)
	}
	q.log.Trace().Str("sql", query).Msg("Running aggregate")

	out := []Bucket{}
	if err := h.DB().WithContext(ctx).Raw(query, args...).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to run aggregate: %w", err)
	}
	return out, nil
}
