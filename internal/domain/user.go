package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User Model
type User struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id"`                    // Same id as the identity credential
	Name            string    `gorm:"size:120;not null" json:"name"`                         // Display name
	Email           string    `gorm:"size:255;uniqueIndex;not null" json:"email"`            // Unique email
	WalletPublicKey string    `gorm:"size:64;uniqueIndex;not null" json:"wallet_public_key"` // Base58 wallet address, key material lives in custody
	Photo           *string   `gorm:"size:512" json:"photo"`                                 // Public photo URL
	CreatedAt       time.Time `json:"created_at"`                                            // Registration time
}

// BeforeCreate assigns a UUID when the caller did not
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Credential Model, owned by the identity provider
type Credential struct {
	ID           string    `gorm:"type:char(36);primaryKey"`      // Also the User id
	Email        string    `gorm:"size:255;uniqueIndex;not null"` // Login email
	PasswordHash string    `gorm:"not null"`                      // bcrypt hash
	CreatedAt    time.Time // Sign-up time
}

// BeforeCreate assigns a UUID when the caller did not
func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
