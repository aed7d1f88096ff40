// dao/user_dao.go
package dao

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/vanguard-api/vanguard/errors"
	logger "github.com/vanguard-api/vanguard/logging"
	"github.com/vanguard-api/vanguard/model"
)

type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{db: db}
}

func (dao *UserDAO) CreateUser(ctx context.Context, user *model.User) error {
	if err := dao.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return apperrors.ErrUserConflict
		}
		logger.Error("Failed to create user", zap.Error(err), zap.String("username", user.Username))
		return apperrors.ErrDatabaseOperation
	}
	return nil
}

func (dao *UserDAO) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := dao.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error("Failed to fetch user", zap.Error(err), zap.String("userID", id))
		return nil, apperrors.ErrDatabaseOperation
	}
	return &user, nil
}

func (dao *UserDAO) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := dao.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error("Failed to fetch user by username", zap.Error(err), zap.String("username", username))
		return nil, apperrors.ErrDatabaseOperation
	}
	return &user, nil
}

func (dao *UserDAO) UpdateUser(ctx context.Context, user *model.User) error {
	res := dao.db.WithContext(ctx).Model(&model.User{ID: user.ID}).
		Select("email", "is_active", "updated_at").Updates(user)
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return apperrors.ErrUserConflict
		}
		logger.Error("Failed to update user", zap.Error(res.Error), zap.String("userID", user.ID))
		return apperrors.ErrDatabaseOperation
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (dao *UserDAO) DeleteUser(ctx context.Context, id string) error {
	res := dao.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		logger.Error("Failed to delete user", zap.Error(res.Error), zap.String("userID", id))
		return apperrors.ErrDatabaseOperation
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// isDuplicateKey detects unique-constraint violations across the MySQL
// driver and gorm's translated error.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
