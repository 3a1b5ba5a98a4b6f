package auth

import (
	"context"
	"strings"
	"time"

	"github.com/Aidin1998/visitante_sonoro/common/dbutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin is a principal allowed to manage musicians
type Admin struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.ToLower(a.Email)
	return nil
}

// AdminStore looks up admins for the auth middleware
type AdminStore interface {
	ByID(ctx context.Context, id string) (*Admin, error)
}

type AdminRepo struct{ db *gorm.DB }

func NewAdminRepo(db *gorm.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

func (r *AdminRepo) Migrate() error {
	return r.db.AutoMigrate(&Admin{})
}

func (r *AdminRepo) Create(ctx context.Context, a *Admin) error {
	return dbutil.WrapError(r.db.WithContext(ctx).Create(a).Error)
}

func (r *AdminRepo) ByID(ctx context.Context, id string) (*Admin, error) {
	return dbutil.FindOne[Admin](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *AdminRepo) ByEmail(ctx context.Context, email string) (*Admin, error) {
	return dbutil.FindOne[Admin](r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)))
}
