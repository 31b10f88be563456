package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction Model, append-only audit of share transfers
type Transaction struct {
	ID        string          `gorm:"type:char(36);primaryKey" json:"id"`
	Sender    string          `gorm:"type:char(36);index;not null" json:"sender"` // Sending user id
	Receiver  string          `gorm:"size:64;index;not null" json:"receiver"`     // Receiving wallet address
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`  // Display amount
	BaseUnits uint64          `gorm:"not null" json:"base_units"`                 // amount * 100
	TokenID   string          `gorm:"type:char(36);index;not null" json:"token_id"`
	UserID    string          `gorm:"type:char(36);index;not null" json:"user_id"`
	Signature string          `gorm:"size:128;uniqueIndex;not null" json:"signature"`
	CreatedAt time.Time       `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
