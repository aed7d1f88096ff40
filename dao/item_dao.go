// dao/item_dao.go
package dao

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/vanguard-api/vanguard/errors"
	logger "github.com/vanguard-api/vanguard/logging"
	"github.com/vanguard-api/vanguard/model"
)

type ItemDAO struct {
	db *gorm.DB
}

func NewItemDAO(db *gorm.DB) *ItemDAO {
	return &ItemDAO{db: db}
}

func (dao *ItemDAO) CreateItem(ctx context.Context, item *model.Item) error {
	if err := dao.db.WithContext(ctx).Create(item).Error; err != nil {
		logger.Error("Failed to create item", zap.Error(err), zap.String("itemID", item.ID))
		return apperrors.ErrDatabaseOperation
	}
	return nil
}

func (dao *ItemDAO) GetItemByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	err := dao.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrItemNotFound
		}
		logger.Error("Failed to fetch item", zap.Error(err), zap.String("itemID", id))
		return nil, apperrors.ErrDatabaseOperation
	}
	return &item, nil
}

func (dao *ItemDAO) SearchItems(ctx context.Context, criteria model.ItemSearchCriteria) ([]model.Item, error) {
	query := dao.db.WithContext(ctx).Model(&model.Item{})
	if criteria.Title != "" {
		query = query.Where("title LIKE ?", "%"+criteria.Title+"%")
	}

	limit := criteria.Limit
	if limit <= 0 {
		limit = 10
	}

	var items []model.Item
	err := query.Order("created_at DESC").Limit(limit).Offset(criteria.Offset).Find(&items).Error
	if err != nil {
		logger.Error("Failed to search items", zap.Error(err))
		return nil, apperrors.ErrDatabaseOperation
	}
	return items, nil
}

func (dao *ItemDAO) UpdateItem(ctx context.Context, item *model.Item) error {
	res := dao.db.WithContext(ctx).Model(&model.Item{ID: item.ID}).
		Select("title", "description", "updated_at").Updates(item)
	if res.Error != nil {
		logger.Error("Failed to update item", zap.Error(res.Error), zap.String("itemID", item.ID))
		return apperrors.ErrDatabaseOperation
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrItemNotFound
	}
	return nil
}

func (dao *ItemDAO) DeleteItem(ctx context.Context, id string) error {
	res := dao.db.WithContext(ctx).Delete(&model.Item{}, "id = ?", id)
	if res.Error != nil {
		logger.Error("Failed to delete item", zap.Error(res.Error), zap.String("itemID", id))
		return apperrors.ErrDatabaseOperation
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrItemNotFound
	}
	return nil
}
