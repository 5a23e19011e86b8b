package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletStore is the local persistent record of users, wallets and their signers
type WalletStore interface {
	GetOrCreateUser(ctx context.Context, principal string) (*models.User, error)
	// CreateWalletWithSigners resolves every signer and inserts the wallet and its signer links in one transaction
	CreateWalletWithSigners(ctx context.Context, wallet *models.Wallet, signerPrincipals []string) (*models.Wallet, error)
	// TransitionStatus moves the wallet from one status to the next, applying mutate to the loaded record.
	// The update only lands if the stored status still equals from.
	TransitionStatus(ctx context.Context, canisterID string, from, to models.WalletStatus, mutate func(*models.Wallet)) (*models.Wallet, error)
	FindByCanisterID(ctx context.Context, canisterID string) (*models.Wallet, error)
	FindByIDForSigner(ctx context.Context, walletID string, principal string) (*models.Wallet, error)
	ListByPrincipal(ctx context.Context, principal string) ([]models.Wallet, error)
	ListAll(ctx context.Context) ([]models.Wallet, error)
}

type walletStore struct {
	db *gorm.DB
}

func NewWalletStore(db *gorm.DB) WalletStore {
	return &walletStore{db: db}
}

func preloadSigners(db *gorm.DB) *gorm.DB {
	return db.Preload("Signers", func(db *gorm.DB) *gorm.DB {
		return db.Order("wallet_signers.created_at ASC")
	}).Preload("Signers.User")
}

func (s *walletStore) GetOrCreateUser(ctx context.Context, principal string) (*models.User, error) {
	return getOrCreateUser(s.db.WithContext(ctx), principal)
}

func getOrCreateUser(tx *gorm.DB, principal string) (*models.User, error) {
	displayName := utils.DefaultDisplayName(principal)
	candidate := models.User{Principal: principal, DisplayName: &displayName}
	// concurrent creators of the same principal converge on the one row that wins the unique index
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	var user models.User
	if err := tx.Where("principal = ?", principal).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// dedupePrincipals keeps the first occurrence of each principal, in order
func dedupePrincipals(principals []string) []string {
	seen := make(map[string]struct{}, len(principals))
	unique := make([]string, 0, len(principals))
	for _, p := range principals {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

func (s *walletStore) CreateWalletWithSigners(ctx context.Context, wallet *models.Wallet, signerPrincipals []string) (*models.Wallet, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make([]*models.User, 0, len(signerPrincipals))
		for _, principal := range dedupePrincipals(signerPrincipals) {
			user, err := getOrCreateUser(tx, principal)
			if err != nil {
				return err
			}
			users = append(users, user)
		}

		if err := tx.Omit(clause.Associations).Create(wallet).Error; err != nil {
			return fmt.Errorf("failed to create wallet: %w", err)
		}

		for _, user := range users {
			signer := models.WalletSigner{WalletID: wallet.ID, UserID: user.ID}
			if err := tx.Omit(clause.Associations).Create(&signer).Error; err != nil {
				return fmt.Errorf("failed to add signer %s: %w", user.Principal, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.FindByCanisterID(ctx, wallet.CanisterID)
}

func (s *walletStore) TransitionStatus(ctx context.Context, canisterID string, from, to models.WalletStatus, mutate func(*models.Wallet)) (*models.Wallet, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet models.Wallet
		if err := tx.Where("canister_id = ?", canisterID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, canisterID)
			}
			return fmt.Errorf("failed to get wallet: %w", err)
		}
		if wallet.Status != from {
			return fmt.Errorf("%w: %s is %s, not %s", ErrInvalidTransition, canisterID, wallet.Status, from)
		}

		if mutate != nil {
			mutate(&wallet)
		}
		wallet.Status = to

		result := tx.Model(&wallet).
			Where("status = ?", from).
			Select("*").
			Omit("ID", "CreatedAt", clause.Associations).
			Updates(&wallet)
		if result.Error != nil {
			return fmt.Errorf("failed to update wallet status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, canisterID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.FindByCanisterID(ctx, canisterID)
}

func (s *walletStore) FindByCanisterID(ctx context.Context, canisterID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := preloadSigners(s.db.WithContext(ctx)).Where("canister_id = ?", canisterID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, canisterID)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (s *walletStore) FindByIDForSigner(ctx context.Context, walletID string, principal string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := preloadSigners(s.db.WithContext(ctx)).
		Joins("JOIN wallet_signers ON wallet_signers.wallet_id = wallets.id").
		Joins("JOIN users ON users.id = wallet_signers.user_id").
		Where("wallets.id = ? AND users.principal = ?", walletID, principal).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, walletID)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// ListByPrincipal returns the wallets principal signs, newest first
func (s *walletStore) ListByPrincipal(ctx context.Context, principal string) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := preloadSigners(s.db.WithContext(ctx)).
		Joins("JOIN wallet_signers ON wallet_signers.wallet_id = wallets.id").
		Joins("JOIN users ON users.id = wallet_signers.user_id").
		Where("users.principal = ?", principal).
		Order("wallets.created_at DESC").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// ListAll returns every wallet, newest first
func (s *walletStore) ListAll(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := preloadSigners(s.db.WithContext(ctx)).Order("wallets.created_at DESC").Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}
