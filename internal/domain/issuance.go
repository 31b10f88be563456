package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IssuanceStatus is the workflow state of a token issuance
type IssuanceStatus string

const (
	IssuanceRunning   IssuanceStatus = "running"
	IssuanceFailed    IssuanceStatus = "failed"
	IssuanceCompleted IssuanceStatus = "completed"
)

// Issuance step names, persisted in Issuance.Step after each one succeeds
const (
	StepStartupCreated   = "startup_created"
	StepMintCreated      = "mint_created"
	StepTokenImage       = "token_image_uploaded"
	StepMetadataAttached = "metadata_attached"
	StepAccountCreated   = "account_created"
	StepStartupImage     = "startup_image_uploaded"
	StepRecorded         = "recorded"
)

// Issuance records every completed step of a startup token issuance so a
// retry with the same idempotency key resumes where the last attempt stopped
type Issuance struct {
	ID                string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID            string         `gorm:"type:char(36);uniqueIndex:idx_issuance_user_key;not null" json:"user_id"`
	IdempotencyKey    string         `gorm:"size:128;uniqueIndex:idx_issuance_user_key;not null" json:"idempotency_key"`
	Status            IssuanceStatus `gorm:"size:16;index;not null" json:"status"`
	Step              string         `gorm:"size:32" json:"step"` // Last completed step
	StartupID         *string        `gorm:"type:char(36)" json:"startup_id"`
	TokenName         string         `gorm:"size:255" json:"token_name"`
	TokenSymbol       string         `gorm:"size:32" json:"token_symbol"`
	MintAddress       *string        `gorm:"size:64" json:"mint_address"`
	MintSignature     *string        `gorm:"size:128" json:"mint_signature"`
	TokenImageURL     *string        `gorm:"size:512" json:"token_image_url"`
	MetadataSignature *string        `gorm:"size:128" json:"metadata_signature"`
	TokenAccount      *string        `gorm:"size:64" json:"token_account"`
	StartupImageURL   *string        `gorm:"size:512" json:"startup_image_url"`
	TokenID           *string        `gorm:"type:char(36)" json:"token_id"`
	LastError         string         `gorm:"type:text" json:"last_error,omitempty"`
	Attempts          int            `gorm:"not null;default:0" json:"attempts"`
	LeaseUntil        *time.Time     `json:"-"` // Held while an attempt is running
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Done reports whether step already completed on a previous attempt
func (i *Issuance) Done(step string) bool {
	return stepIndex(i.Step) >= stepIndex(step)
}

var stepOrder = []string{
	StepStartupCreated,
	StepMintCreated,
	StepTokenImage,
	StepMetadataAttached,
	StepAccountCreated,
	StepStartupImage,
	StepRecorded,
}

func stepIndex(step string) int {
	for i, s := range stepOrder {
		if s == step {
			return i
		}
	}
	return -1
}

// BeforeCreate assigns a UUID when the caller did not
func (i *Issuance) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
