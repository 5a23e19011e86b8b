package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WalletStatus string

const (
	WalletStatusDeploying WalletStatus = "deploying"
	WalletStatusDeployed  WalletStatus = "deployed"
	WalletStatusFailed    WalletStatus = "failed"
	WalletStatusStopped   WalletStatus = "stopped"
)

var walletTransitions = map[WalletStatus][]WalletStatus{
	WalletStatusDeploying: {WalletStatusDeployed, WalletStatusFailed},
	WalletStatusDeployed:  {WalletStatusStopped},
}

// CanTransitionTo reports whether next is a legal successor of s.
// Failed and Stopped are terminal.
func (s WalletStatus) CanTransitionTo(next WalletStatus) bool {
	for _, allowed := range walletTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type WalletEventType string

const (
	WalletEventCreated  WalletEventType = "created"
	WalletEventDeployed WalletEventType = "deployed"
	WalletEventFailed   WalletEventType = "failed"
	WalletEventStopped  WalletEventType = "stopped"
	// WalletEventOrphaned is never persisted: it is raised when a canister exists remotely without a local record
	WalletEventOrphaned WalletEventType = "orphaned"
)

// WalletEvent is one entry of a wallet's append-only lifecycle log
type WalletEvent struct {
	Type     WalletEventType `json:"type"`
	At       time.Time       `json:"at"`
	Actor    string          `json:"actor,omitempty"`
	WasmHash string          `json:"wasm_hash,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// DeploymentInfo holds the named fields recorded while a wallet is deployed
type DeploymentInfo struct {
	CreatedBy  string     `json:"createdBy,omitempty"`
	DeployedAt *time.Time `json:"deployedAt,omitempty"`
	WasmSize   *int       `json:"wasmSize,omitempty"`
	Error      string     `json:"error,omitempty"`
	FailedAt   *time.Time `json:"failedAt,omitempty"`
}

type Wallet struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CanisterID string         `gorm:"uniqueIndex;not null;type:varchar(63)" json:"canister_id"`
	Name       string         `gorm:"not null" json:"name"`
	Status     WalletStatus   `gorm:"not null;index;default:deploying" json:"status"`
	Metadata   JSON           `gorm:"type:text" json:"metadata"` // caller supplied
	Deployment DeploymentInfo `gorm:"embedded;embeddedPrefix:deployment_" json:"deployment"`
	Events     []WalletEvent  `gorm:"serializer:json;type:text" json:"events"`
	// WasmHash is set once the wallet reaches deployed
	WasmHash  *string   `json:"wasm_hash"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Signers []WalletSigner `gorm:"foreignKey:WalletID;references:ID" json:"signers,omitempty"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// IsActive is true only for deployed wallets
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusDeployed
}

func (w *Wallet) AppendEvent(event WalletEvent) {
	w.Events = append(w.Events, event)
}

// CombinedMetadata layers the named deployment fields over the caller metadata
func (w *Wallet) CombinedMetadata() JSON {
	named := JSON{}
	if w.Deployment.CreatedBy != "" {
		named["createdBy"] = w.Deployment.CreatedBy
	}
	if w.Deployment.DeployedAt != nil {
		named["deployedAt"] = w.Deployment.DeployedAt.UTC().Format(time.RFC3339Nano)
	}
	if w.Deployment.WasmSize != nil {
		named["wasmSize"] = *w.Deployment.WasmSize
	}
	if w.Deployment.Error != "" {
		named["error"] = w.Deployment.Error
	}
	if w.Deployment.FailedAt != nil {
		named["failedAt"] = w.Deployment.FailedAt.UTC().Format(time.RFC3339Nano)
	}
	return w.Metadata.Merge(named)
}

// SignerPrincipals lists the principals of the loaded signers
func (w *Wallet) SignerPrincipals() []string {
	principals := make([]string, 0, len(w.Signers))
	for _, s := range w.Signers {
		principals = append(principals, s.User.Principal)
	}
	return principals
}

type WalletSignerResponse struct {
	UserID      string  `json:"user_id"`
	Principal   string  `json:"principal"`
	DisplayName *string `json:"display_name,omitempty"`
}

// WalletResponse is the shape wallets are returned in by every surface
type WalletResponse struct {
	ID         string                 `json:"id"`
	CanisterID string                 `json:"canister_id"`
	Name       string                 `json:"name"`
	Status     WalletStatus           `json:"status"`
	Metadata   JSON                   `json:"metadata"`
	WasmHash   *string                `json:"wasm_hash"`
	IsActive   bool                   `json:"is_active"`
	Events     []WalletEvent          `json:"events"`
	Signers    []WalletSignerResponse `json:"signers"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func (w *Wallet) ToResponse() WalletResponse {
	signers := make([]WalletSignerResponse, 0, len(w.Signers))
	for _, s := range w.Signers {
		signers = append(signers, WalletSignerResponse{
			UserID:      s.UserID,
			Principal:   s.User.Principal,
			DisplayName: s.User.DisplayName,
		})
	}
	events := w.Events
	if events == nil {
		events = []WalletEvent{}
	}
	return WalletResponse{
		ID:         w.ID,
		CanisterID: w.CanisterID,
		Name:       w.Name,
		Status:     w.Status,
		Metadata:   w.CombinedMetadata(),
		WasmHash:   w.WasmHash,
		IsActive:   w.IsActive(),
		Events:     events,
		Signers:    signers,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}
