package menu

import (
	"context"
	"errors"
	"strings"

	"campus-eats/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	// Resolve is the catalog lookup used while pricing an order.
	Resolve(ctx context.Context, itemID string) (*CatalogEntry, error)
	Get(ctx context.Context, itemID string) (*MenuItem, error)
	List(ctx context.Context, filter ListFilter) ([]MenuItem, error)
	Categories(ctx context.Context) ([]Category, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Resolve(ctx context.Context, itemID string) (*CatalogEntry, error) {
	item, err := s.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	image := item.Image
	if image == "" {
		image = DefaultImage
	}

	return &CatalogEntry{
		ItemID:      item.ID,
		Name:        item.Name,
		Price:       item.Price,
		Image:       image,
		IsAvailable: item.IsAvailable,
	}, nil
}

// Get treats identifiers that are not UUIDs as unknown items.
func (s *service) Get(ctx context.Context, itemID string) (*MenuItem, error) {
	itemID = strings.TrimSpace(itemID)
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, ErrMenuItemNotFound
	}

	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		if !errors.Is(err, ErrMenuItemNotFound) {
			logger.FromCtx(ctx).Error("failed to load menu item",
				zap.String("layer", "service"),
				zap.String("item_id", itemID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return item, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]MenuItem, error) {
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	filter.Search = strings.TrimSpace(filter.Search)

	return s.repo.List(ctx, filter)
}

func (s *service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.Categories(ctx)
}
