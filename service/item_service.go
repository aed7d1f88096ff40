// service/item_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vanguard-api/vanguard/auth"
	"github.com/vanguard-api/vanguard/cache"
	apperrors "github.com/vanguard-api/vanguard/errors"
	logger "github.com/vanguard-api/vanguard/logging"
	"github.com/vanguard-api/vanguard/model"
	"github.com/vanguard-api/vanguard/util"
)

// ItemRepository is the persistence surface the item service needs.
// *dao.ItemDAO is the production implementation.
type ItemRepository interface {
	CreateItem(ctx context.Context, item *model.Item) error
	GetItemByID(ctx context.Context, id string) (*model.Item, error)
	SearchItems(ctx context.Context, criteria model.ItemSearchCriteria) ([]model.Item, error)
	UpdateItem(ctx context.Context, item *model.Item) error
	DeleteItem(ctx context.Context, id string) error
}

// IItemService defines the methods for item management.
type IItemService interface {
	CreateItem(ctx context.Context, req model.ItemCreate, principal *auth.Principal) (*model.Item, error)
	GetItem(ctx context.Context, id string) (*model.Item, error)
	SearchItems(ctx context.Context, criteria model.ItemSearchCriteria) ([]model.Item, error)
	UpdateItem(ctx context.Context, id string, upd model.ItemUpdate, principal *auth.Principal) (*model.Item, error)
	DeleteItem(ctx context.Context, id string, principal *auth.Principal) error
}

type itemService struct {
	itemDAO  ItemRepository
	cache    *cache.Layer
	eventBus *util.EventBus
}

var _ IItemService = &itemService{}

func NewItemService(itemDAO ItemRepository, cacheLayer *cache.Layer, eventBus *util.EventBus) *itemService {
	return &itemService{
		itemDAO:  itemDAO,
		cache:    cacheLayer,
		eventBus: eventBus,
	}
}

func (s *itemService) CreateItem(ctx context.Context, req model.ItemCreate, principal *auth.Principal) (*model.Item, error) {
	now := time.Now()
	item := &model.Item{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     principal.Subject,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.itemDAO.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	logger.Info("Item created", zap.String("itemID", item.ID), zap.String("ownerID", item.OwnerID))
	s.eventBus.Publish(ctx, "item.created", item)
	return item, nil
}

func (s *itemService) GetItem(ctx context.Context, id string) (*model.Item, error) {
	return s.itemDAO.GetItemByID(ctx, id)
}

func (s *itemService) SearchItems(ctx context.Context, criteria model.ItemSearchCriteria) ([]model.Item, error) {
	return s.itemDAO.SearchItems(ctx, criteria)
}

func (s *itemService) UpdateItem(ctx context.Context, id string, upd model.ItemUpdate, principal *auth.Principal) (*model.Item, error) {
	item, err := s.itemDAO.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != principal.Subject && !principal.HasRole("admin") {
		return nil, apperrors.ErrForbidden
	}

	if upd.Title != nil {
		item.Title = *upd.Title
	}
	if upd.Description != nil {
		item.Description = *upd.Description
	}
	item.UpdatedAt = time.Now()

	if err := s.itemDAO.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, "item.updated", item)

	// Invalidate before returning so the next read recomputes from the
	// database instead of serving the superseded entry.
	if err := s.cache.Invalidate(ctx, cache.Key("item", id)); err != nil {
		return item, err
	}
	return item, nil
}

func (s *itemService) DeleteItem(ctx context.Context, id string, principal *auth.Principal) error {
	item, err := s.itemDAO.GetItemByID(ctx, id)
	if err != nil {
		return err
	}
	if item.OwnerID != principal.Subject && !principal.HasRole("admin") {
		return apperrors.ErrForbidden
	}

	if err := s.itemDAO.DeleteItem(ctx, id); err != nil {
		return err
	}

	logger.Info("Item deleted", zap.String("itemID", id), zap.String("deletedBy", principal.Subject))
	s.eventBus.Publish(ctx, "item.deleted", id)

	return s.cache.Invalidate(ctx, cache.Key("item", id))
}
