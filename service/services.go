// service/services.go
package service

import (
	"gorm.io/gorm"

	"github.com/vanguard-api/vanguard/cache"
	"github.com/vanguard-api/vanguard/dao"
	"github.com/vanguard-api/vanguard/util"
)

type Services struct {
	User IUserService
	Item IItemService
}

func InitializeServices(
	db *gorm.DB,
	cacheLayer *cache.Layer,
	eventBus *util.EventBus,
) *Services {
	userDAO := dao.NewUserDAO(db)
	itemDAO := dao.NewItemDAO(db)

	return &Services{
		User: NewUserService(userDAO, cacheLayer, eventBus),
		Item: NewItemService(itemDAO, cacheLayer, eventBus),
	}
}
