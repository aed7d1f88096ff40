// controller/item_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/vanguard-api/vanguard/errors"
	"github.com/vanguard-api/vanguard/model"
	"github.com/vanguard-api/vanguard/service"
	"github.com/vanguard-api/vanguard/util"
)

type ItemController struct {
	itemService service.IItemService
}

func NewItemController(itemService service.IItemService) *ItemController {
	return &ItemController{
		itemService: itemService,
	}
}

// CreateItem endpoint
func (ic *ItemController) CreateItem(c *gin.Context) {
	var req model.ItemCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid item data", apperrors.ErrInvalidItemData)
		return
	}

	principal := util.PrincipalFromContext(c)
	if principal == nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", apperrors.ErrUnauthenticated)
		return
	}

	item, err := ic.itemService.CreateItem(c.Request.Context(), req, principal)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to create item", err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// GetItem endpoint
func (ic *ItemController) GetItem(c *gin.Context) {
	item, err := ic.itemService.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrItemNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Item not found", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch item", err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// SearchItems endpoint
func (ic *ItemController) SearchItems(c *gin.Context) {
	var criteria model.ItemSearchCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid search criteria", apperrors.ErrInvalidItemData)
		return
	}

	items, err := ic.itemService.SearchItems(c.Request.Context(), criteria)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to search items", err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// UpdateItem endpoint
func (ic *ItemController) UpdateItem(c *gin.Context) {
	var upd model.ItemUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid item data", apperrors.ErrInvalidItemData)
		return
	}

	principal := util.PrincipalFromContext(c)
	if principal == nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", apperrors.ErrUnauthenticated)
		return
	}

	item, err := ic.itemService.UpdateItem(c.Request.Context(), c.Param("id"), upd, principal)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidationFailed):
			// The write committed but the cached copy could not be removed.
			// The caller must know the next read may briefly serve stale data.
			util.StaleCacheWarning(c)
			c.JSON(http.StatusOK, item)
		case errors.Is(err, apperrors.ErrItemNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Item not found", err)
		case errors.Is(err, apperrors.ErrForbidden):
			util.RespondWithError(c, http.StatusForbidden, "Not the item owner", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update item", err)
		}
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteItem endpoint
func (ic *ItemController) DeleteItem(c *gin.Context) {
	principal := util.PrincipalFromContext(c)
	if principal == nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", apperrors.ErrUnauthenticated)
		return
	}

	err := ic.itemService.DeleteItem(c.Request.Context(), c.Param("id"), principal)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidationFailed):
			util.StaleCacheWarning(c)
			c.Status(http.StatusNoContent)
		case errors.Is(err, apperrors.ErrItemNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Item not found", err)
		case errors.Is(err, apperrors.ErrForbidden):
			util.RespondWithError(c, http.StatusForbidden, "Not the item owner", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete item", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
