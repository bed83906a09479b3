package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/boxoffice/internal/database"
	"github.com/Additional-Code/boxoffice/internal/entity"
)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Catalog seeds a demo performance with flash-sale ticket tiers if missing.
func (s *Seeder) Catalog(ctx context.Context) error {
	now := time.Now().UTC()

	perf := entity.Performance{
		Title:       "周杰伦2026世界巡回演唱会",
		CategoryID:  1,
		Description: "嘉年华世界巡回演唱会",
		Performer:   "周杰伦",
		Venue:       "国家体育场",
		StartTime:   now.Add(30 * 24 * time.Hour),
		EndTime:     now.Add(30*24*time.Hour + 3*time.Hour),
		Status:      1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	exists, err := s.db.NewSelect().Model((*entity.Performance)(nil)).
		Where("p.title = ?", perf.Title).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("seed data already present; skipping")
		return nil
	}

	if _, err := s.db.NewInsert().Model(&perf).Exec(ctx); err != nil {
		return err
	}

	tiers := []entity.TicketType{
		{PerformanceID: perf.ID, Name: "内场VIP", Price: 1680, Stock: 100, Total: 100},
		{PerformanceID: perf.ID, Name: "看台A区", Price: 980, Stock: 500, Total: 500},
		{PerformanceID: perf.ID, Name: "看台B区", Price: 580, Stock: 1000, Total: 1000},
	}
	for i := range tiers {
		tiers[i].Status = entity.TicketTypeOnSale
		tiers[i].SaleStartTime = now
		tiers[i].SaleEndTime = perf.StartTime
		tiers[i].CreatedAt = now
		tiers[i].UpdatedAt = now
	}

	if _, err := s.db.NewInsert().Model(&tiers).Exec(ctx); err != nil {
		return err
	}

	s.logger.Info("seeded catalog",
		zap.Int64("performance_id", perf.ID),
		zap.Int("ticket_types", len(tiers)),
	)
	return nil
}
