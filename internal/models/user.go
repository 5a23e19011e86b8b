package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a principal known to the backend. Users are created on first reference and never deleted.
type User struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Principal   string    `gorm:"uniqueIndex;not null;type:varchar(63)" json:"principal"`
	DisplayName *string   `json:"display_name,omitempty"`
	Address     *string   `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// WalletSigner links a user to a wallet; a user signs a given wallet at most once
type WalletSigner struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	WalletID  string    `gorm:"not null;type:varchar(36);uniqueIndex:idx_wallet_signer" json:"wallet_id"`
	UserID    string    `gorm:"not null;type:varchar(36);uniqueIndex:idx_wallet_signer;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID;references:ID" json:"user"`
}

func (s *WalletSigner) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
