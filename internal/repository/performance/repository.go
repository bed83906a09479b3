package performance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/boxoffice/internal/database"
	"github.com/Additional-Code/boxoffice/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/boxoffice/repository/performance")

// ErrNotFound is returned when a performance is missing.
var ErrNotFound = errors.New("performance not found")

// Query narrows a performance listing.
type Query struct {
	CategoryID int64
	Keyword    string
	Status     int // negative means all statuses
	Page       int
	Size       int
}

// Repository encapsulates read access for performances.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a repository backed by the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// GetByID fetches a performance by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Performance, error) {
	ctx, span := repoTracer.Start(ctx, "PerformanceRepository.GetByID", trace.WithAttributes(attribute.Int64("performance.id", id)))
	defer span.End()

	p := new(entity.Performance)
	err := r.reader.NewSelect().Model(p).Where("p.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return p, nil
}

// List returns a filtered page of performances plus the total match count.
func (r *Repository) List(ctx context.Context, q Query) ([]*entity.Performance, int, error) {
	ctx, span := repoTracer.Start(ctx, "PerformanceRepository.List")
	defer span.End()

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = 10
	}

	var performances []*entity.Performance
	sel := r.reader.NewSelect().Model(&performances)
	if q.CategoryID > 0 {
		sel = sel.Where("p.category_id = ?", q.CategoryID)
	}
	if q.Keyword != "" {
		kw := "%" + q.Keyword + "%"
		sel = sel.Where("(p.title LIKE ? OR p.description LIKE ?)", kw, kw)
	}
	if q.Status >= 0 {
		sel = sel.Where("p.status = ?", q.Status)
	}

	total, err := sel.Order("p.start_time ASC").
		Limit(q.Size).
		Offset((q.Page - 1) * q.Size).
		ScanAndCount(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, 0, err
	}
	return performances, total, nil
}
