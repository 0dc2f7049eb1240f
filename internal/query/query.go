// Package query runs filtered, paginated reads of trains against an open snapshot.
//
// Filter and order fragments are spliced into the SQL text as they are: they are
// only parenthesised and joined with AND. Nothing is escaped or bound as a
// parameter. Fragments must come from the application itself, never from
// untrusted input. This is acceptable only because every snapshot is a local,
// read-only copy of a public dataset. Code reusing this package in any other
// setting has to add parameterization first.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"

	"github.com/railwatch/trainview/internal/model"
)

// ErrInvalidPage is returned for a negative limit or offset.
var ErrInvalidPage = errors.New("limit and offset must not be negative")

// Handle is anything that exposes an opened snapshot database.
type Handle interface {
	DB() *gorm.DB
}

// Result is one page of trains plus the counts it was cut from.
type Result struct {
	Trains        []model.Train
	FilteredCount int64
	TotalCount    int64
}

// PageCount is the number of pages of size limit needed for FilteredCount.
func (r Result) PageCount(limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((r.FilteredCount + int64(limit) - 1) / int64(limit))
}

// Builder issues train queries.
type Builder struct {
	log      zerolog.Logger
	executed metric.Int64Counter
}

// NewBuilder creates a Builder.
func NewBuilder(log zerolog.Logger) (*Builder, error) {
	executed, err := meter().Int64Counter(
		"query.executed",
		metric.WithDescription("Queries run against the snapshot"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating query counter: %w", err)
	}
	return &Builder{log: log, executed: executed}, nil
}

// List returns the page [offset, offset+limit) of trains matching f, together with
// the filtered and total row counts. A limit of 0 returns only the counts.
func (b *Builder) List(ctx context.Context, h Handle, limit, offset int, f Filter) (Result, error) {
	if limit < 0 || offset < 0 {
		return Result{}, ErrInvalidPage
	}
	db := h.DB().WithContext(ctx)

	var res Result
	if err := db.Raw(countSQL(Filter{})).Scan(&res.TotalCount).Error; err != nil {
		return Result{}, fmt.Errorf("failed to count trains: %w", err)
	}
	b.count(ctx, "total")

	if f.Len() == 0 {
		res.FilteredCount = res.TotalCount
	} else {
		if err := db.Raw(countSQL(f)).Scan(&res.FilteredCount).Error; err != nil {
			return Result{}, fmt.Errorf("failed to count filtered trains: %w", err)
		}
		b.count(ctx, "filtered")
	}

	res.Trains = []model.Train{}
	if limit == 0 {
		return res, nil
	}

	var rows []model.TrainRow
	if err := db.Raw(pageSQL(f, limit, offset)).Scan(&rows).Error; err != nil {
		return Result{}, fmt.Errorf("failed to list trains: %w", err)
	}
	b.count(ctx, "page")

	res.Trains = make([]model.Train, 0, len(rows))
	for _, r := range rows {
		res.Trains = append(res.Trains, r.ToTrain())
	}

	b.log.Trace().
		Str("where", f.WhereSQL()).
		Str("order", f.Order()).
		Int("limit", limit).
		Int("offset", offset).
		Int("rows", len(res.Trains)).
		Msg("Listed trains")

	return res, nil
}

// GetByID returns the train with the given id. ok is false when there is none.
func (b *Builder) GetByID(ctx context.Context, h Handle, id int64) (model.Train, bool, error) {
	var row model.TrainRow
	err := h.DB().WithContext(ctx).Where("id = ?", id).Take(&row).Error
	b.count(ctx, "get")
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Train{}, false, nil
	}
	if err != nil {
		return model.Train{}, false, fmt.Errorf("failed to get train %d: %w", id, err)
	}
	return row.ToTrain(), true, nil
}

// Pages calls fn for every page of trains matching f, stopping after the first
// short page or when fn returns an error.
func (b *Builder) Pages(ctx context.Context, h Handle, limit int, f Filter, fn func(Result) error) error {
	if limit <= 0 {
		return ErrInvalidPage
	}
	for offset := 0; ; offset += limit {
		res, err := b.List(ctx, h, limit, offset, f)
		if err != nil {
			return err
		}
		if len(res.Trains) > 0 {
			if err := fn(res); err != nil {
				return err
			}
		}
		if len(res.Trains) < limit {
			return nil
		}
	}
}

func (b *Builder) count(ctx context.Context, op string) {
	b.executed.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func countSQL(f Filter) string {
	sql := "SELECT COUNT(*) FROM " + model.TrainsTable
	if where := f.WhereSQL(); where != "" {
		sql += " WHERE " + where
	}
	return sql
}

func pageSQL(f Filter, limit, offset int) string {
	sql := "SELECT * FROM " + model.TrainsTable
	if where := f.WhereSQL(); where != "" {
		sql += " WHERE " + where
	}
	return sql + fmt.Sprintf(" ORDER BY %s LIMIT %d OFFSET %d", f.Order(), limit, offset)
}
