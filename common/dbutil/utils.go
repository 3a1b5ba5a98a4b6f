package dbutil

import (
	"github.com/Aidin1998/visitante_sonoro/pkg/errors"
	"gorm.io/gorm"
)

// FindOne returns the first row matched by db, or errors.NotFound.
func FindOne[T any](db *gorm.DB) (*T, error) {
	var item T
	result := db.Limit(1).Find(&item)
	if result.Error != nil {
		return nil, WrapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errors.NotFound
	}
	return &item, nil
}

// FindOptional is FindOne with absence reported as (nil, nil).
func FindOptional[T any](db *gorm.DB) (*T, error) {
	item, err := FindOne[T](db)
	if errors.Is(err, errors.NotFound) {
		return nil, nil
	}
	return item, err
}
