// controller/controllers.go
package controller

import (
	"time"

	"github.com/vanguard-api/vanguard/auth"
	"github.com/vanguard-api/vanguard/service"
)

type Controllers struct {
	Auth *AuthController
	User *UserController
	Item *ItemController
}

func InitializeControllers(services *service.Services, guard *auth.Guard, tokenTTL time.Duration) *Controllers {
	return &Controllers{
		Auth: NewAuthController(services.User, guard, tokenTTL),
		User: NewUserController(services.User),
		Item: NewItemController(services.Item),
	}
}
