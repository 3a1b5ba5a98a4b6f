// Package musician implements the musician resource: storage, ownership
// checks and image upload orchestration
package musician

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image describes a picture stored on the media host. It is either empty or
// has all four fields set.
type Image struct {
	FileName string `gorm:"column:image_file_name" json:"fileName,omitempty"`
	FilePath string `gorm:"column:image_file_path" json:"filePath,omitempty"`
	FileType string `gorm:"column:image_file_type" json:"fileType,omitempty"`
	FileSize string `gorm:"column:image_file_size" json:"fileSize,omitempty"`
}

func (i Image) IsEmpty() bool {
	return i == Image{}
}

type Musician struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Admin       string    `gorm:"type:varchar(36);index;not null" json:"admin"`
	Name        string    `gorm:"not null" json:"name"`
	Age         string    `json:"age"`
	URL         string    `gorm:"uniqueIndex;not null" json:"url"`
	Description string    `json:"description"`
	Image       Image     `gorm:"embedded" json:"image"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Musician) TableName() string {
	return "musicians"
}

// BeforeCreate assigns the id
func (m *Musician) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// OwnedBy reports whether adminID created the record
func (m *Musician) OwnedBy(adminID string) bool {
	return m.Admin == adminID
}

// CreateInput carries the fields of a new musician
type CreateInput struct {
	Name        string `json:"name" form:"name" validate:"required"`
	Age         string `json:"age" form:"age"`
	URL         string `json:"url" form:"url" validate:"required"`
	Description string `json:"description" form:"description"`
}

// UpdateInput carries changed fields; nil leaves the stored value alone
type UpdateInput struct {
	Name        *string `json:"name" form:"name"`
	Age         *string `json:"age" form:"age"`
	URL         *string `json:"url" form:"url"`
	Description *string `json:"description" form:"description"`
}

func (in UpdateInput) apply(m *Musician) {
	if in.Name != nil {
		m.Name = *in.Name
	}
	if in.Age != nil {
		m.Age = *in.Age
	}
	if in.URL != nil {
		m.URL = *in.URL
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
}
