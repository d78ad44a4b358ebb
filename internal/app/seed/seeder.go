package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/mrops-br/products-inventory-api/internal/domain"
	"github.com/shopspring/decimal"
)

// Result counts what a seeding run stored
type Result struct {
	Active  int
	Trashed int64
}

// Seeder fills a repository with sample products
type Seeder struct {
	repo   domain.ProductRepository
	logger *slog.Logger
	faker  *gofakeit.Faker
}

// NewSeeder creates a seeder drawing values from faker
func NewSeeder(repo domain.ProductRepository, logger *slog.Logger, faker *gofakeit.Faker) *Seeder {
	return &Seeder{repo: repo, logger: logger, faker: faker}
}

// attributes draws quantity 1..1000 and price 1.00..999.99. The uuid suffix
// keeps names unique when the faker repeats a product name.
func (s *Seeder) attributes() domain.ProductAttributes {
	return domain.ProductAttributes{
		Name:     fmt.Sprintf("%s %s", s.faker.ProductName(), uuid.NewString()[:8]),
		Quantity: int64(s.faker.Number(1, 1000)),
		Price:    decimal.NewFromFloat(s.faker.Price(1, 1000)).Round(2),
	}
}

// Seed stores active products and then trashed ones
func (s *Seeder) Seed(ctx context.Context, active, trashed int) (Result, error) {
	var result Result

	for i := 0; i < active; i++ {
		if _, err := s.repo.Create(ctx, s.attributes()); err != nil {
			return result, fmt.Errorf("failed to seed active product: %w", err)
		}
		result.Active++
	}

	ids := make([]int64, 0, trashed)
	for i := 0; i < trashed; i++ {
		p, err := s.repo.Create(ctx, s.attributes())
		if err != nil {
			return result, fmt.Errorf("failed to seed trashed product: %w", err)
		}
		ids = append(ids, p.ID)
	}

	count, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("failed to trash seeded products: %w", err)
	}
	result.Trashed = count

	s.logger.InfoContext(ctx, "Products seeded",
		slog.Int("active", result.Active),
		slog.Int64("trashed", result.Trashed),
	)
	return result, nil
}
