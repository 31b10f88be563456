package domain

import "time"

// WalletKey holds a sealed wallet secret for the database custody backend
type WalletKey struct {
	PublicKey string `gorm:"size:64;primaryKey"`
	Sealed    []byte `gorm:"not null"` // nonce followed by the secretbox output
	CreatedAt time.Time
}

func (WalletKey) TableName() string { return "wallet_keys" }
