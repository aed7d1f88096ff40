// errors/item_errors.go
package errors

import "errors"

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrInvalidItemData = errors.New("invalid item data")
)
