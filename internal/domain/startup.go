package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Startup Model
type Startup struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          string    `gorm:"type:char(36);index;not null" json:"user_id"` // Owner
	Name            string    `gorm:"size:255;not null" json:"name"`
	Description     string    `gorm:"type:text;not null" json:"description"`
	StartupImage    string    `gorm:"size:512" json:"startup_image"`
	TokenID         *string   `gorm:"column:token;type:char(36)" json:"token"` // Set together with TokenAccount
	TokenAccount    *string   `gorm:"size:64" json:"token_account"`            // Owner's associated token account
	TelephoneNumber string    `gorm:"size:32" json:"telephone_number"`
	Website         string    `gorm:"size:255" json:"website"`
	Instagram       string    `gorm:"size:255" json:"instagram"`
	Facebook        string    `gorm:"size:255" json:"facebook"`
	Whatsapp        string    `gorm:"size:32" json:"whatsapp"`
	Likes           int       `gorm:"not null;default:0" json:"likes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Token *Token `gorm:"foreignKey:TokenID" json:"token_info,omitempty"`
}

// Tokenized reports whether the issuance back-fill has happened
func (s *Startup) Tokenized() bool {
	return s.TokenID != nil && s.TokenAccount != nil
}

// BeforeCreate assigns a UUID when the caller did not
func (s *Startup) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
