package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Token Model, the off-chain record of a mint
type Token struct {
	ID             string    `gorm:"type:char(36);primaryKey" json:"id"`
	StartupID      string    `gorm:"type:char(36);uniqueIndex;not null" json:"startup_id"` // At most one token per startup
	MintAddress    string    `gorm:"size:64;uniqueIndex;not null" json:"mint_address"`
	UserID         string    `gorm:"type:char(36);index;not null" json:"user_id"` // Creator
	Signature      string    `gorm:"size:128" json:"signature"`                   // Mint creation transaction
	ArweaveJSONURI *string   `gorm:"column:arweave_json_uri;size:512" json:"arweave_json_uri"`
	CreatedAt      time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not
func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
