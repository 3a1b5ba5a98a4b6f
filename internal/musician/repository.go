package musician

import (
	"context"

	"github.com/Aidin1998/visitante_sonoro/common/dbutil"
	"gorm.io/gorm"
)

// Repository is the persistence surface the service needs
type Repository interface {
	FindByID(ctx context.Context, id string) (*Musician, error)
	// FindByURL returns nil, nil when no record holds url
	FindByURL(ctx context.Context, url string) (*Musician, error)
	Create(ctx context.Context, m *Musician) error
	Update(ctx context.Context, m *Musician) (*Musician, error)
	Delete(ctx context.Context, id string) error
	// List returns every record, newest first
	List(ctx context.Context) ([]Musician, error)
}

type GormRepository struct{ db *gorm.DB }

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&Musician{})
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*Musician, error) {
	return dbutil.FindOne[Musician](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormRepository) FindByURL(ctx context.Context, url string) (*Musician, error) {
	return dbutil.FindOptional[Musician](r.db.WithContext(ctx).Where("url = ?", url))
}

func (r *GormRepository) Create(ctx context.Context, m *Musician) error {
	return dbutil.WrapError(r.db.WithContext(ctx).Create(m).Error)
}

// Update writes the mutable columns of m and returns the stored row
func (r *GormRepository) Update(ctx context.Context, m *Musician) (*Musician, error) {
	res := r.db.WithContext(ctx).Model(&Musician{}).Where("id = ?", m.ID).Updates(map[string]any{
		"name":            m.Name,
		"age":             m.Age,
		"url":             m.URL,
		"description":     m.Description,
		"image_file_name": m.Image.FileName,
		"image_file_path": m.Image.FilePath,
		"image_file_type": m.Image.FileType,
		"image_file_size": m.Image.FileSize,
	})
	if res.Error != nil {
		return nil, dbutil.WrapError(res.Error)
	}
	return r.FindByID(ctx, m.ID)
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Musician{})
	if res.Error != nil {
		return dbutil.WrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return dbutil.WrapError(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *GormRepository) List(ctx context.Context) ([]Musician, error) {
	musicians := make([]Musician, 0)
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&musicians).Error; err != nil {
		return nil, dbutil.WrapError(err)
	}
	return musicians, nil
}
