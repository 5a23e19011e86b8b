package icp

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aviate-labs/agent-go/identity"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"go.uber.org/zap"
)

// Identity is an Ed25519 keypair with its derived self-authenticating principal
type Identity struct {
	privateKey ed25519.PrivateKey
	signer     *identity.Ed25519Identity
}

// NewIdentity parses a hex encoded secret. Both a 32 byte seed and a 64 byte seed||public key are accepted.
func NewIdentity(secretHex string) (*Identity, error) {
	secret, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(secretHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: secret is not hex: %w", ErrCredentialFormat, err)
	}

	var privateKey ed25519.PrivateKey
	switch len(secret) {
	case ed25519.SeedSize:
		privateKey = ed25519.NewKeyFromSeed(secret)
	case ed25519.PrivateKeySize:
		privateKey = ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
		if !bytes.Equal(privateKey[ed25519.SeedSize:], secret[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("%w: public key half does not match the seed", ErrCredentialFormat)
		}
	default:
		return nil, fmt.Errorf("%w: expected %d or %d bytes, got %d", ErrCredentialFormat, ed25519.SeedSize, ed25519.PrivateKeySize, len(secret))
	}

	signer, err := identity.NewEd25519Identity(privateKey.Public().(ed25519.PublicKey), privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialFormat, err)
	}

	return &Identity{privateKey: privateKey, signer: signer}, nil
}

// GenerateIdentity creates a fresh identity and returns it with its hex encoded seed
func GenerateIdentity() (*Identity, string, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate key: %w", err)
	}
	secretHex := hex.EncodeToString(privateKey.Seed())
	id, err := NewIdentity(secretHex)
	if err != nil {
		return nil, "", err
	}
	return id, secretHex, nil
}

func (i *Identity) Principal() Principal {
	return i.signer.Sender()
}

func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.privateKey.Public().(ed25519.PublicKey)
}

// PublicKeyDER returns the SubjectPublicKeyInfo encoding sent alongside signed requests
func (i *Identity) PublicKeyDER() []byte {
	return i.signer.PublicKey()
}

func (i *Identity) Sign(message []byte) []byte {
	return i.signer.Sign(message)
}

// Signer exposes the identity to the agent that signs request envelopes
func (i *Identity) Signer() identity.Identity {
	return i.signer
}

// IdentityProvider loads the backend identity from configuration on first use and caches it
type IdentityProvider struct {
	secretHex string
	logger    *zap.Logger
	identity  *utils.Lazy[*Identity]
}

func NewIdentityProvider(secretHex string, logger *zap.Logger) *IdentityProvider {
	p := &IdentityProvider{
		secretHex: secretHex,
		logger:    logger,
	}
	p.identity = utils.NewLazy(p.load)
	return p
}

func (p *IdentityProvider) load(ctx context.Context) (*Identity, error) {
	if p.secretHex == "" {
		p.logger.Error("BACKEND_PRIVATE_KEY not found in environment variables; run `walletd identity generate` to create one")
		return nil, fmt.Errorf("%w: backend private key not configured", ErrConfiguration)
	}

	id, err := NewIdentity(p.secretHex)
	if err != nil {
		p.logger.Error("Failed to load identity", zap.Error(err))
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	p.logger.Info("Identity loaded successfully", zap.String("principal", id.Principal().String()))
	return id, nil
}

// GetIdentity returns the cached identity, loading it on the first call
func (p *IdentityProvider) GetIdentity() (*Identity, error) {
	return p.identity.Get(context.Background())
}

// GetPrincipal returns the textual principal of the backend identity
func (p *IdentityProvider) GetPrincipal() (string, error) {
	id, err := p.GetIdentity()
	if err != nil {
		return "", err
	}
	return id.Principal().String(), nil
}

// GetPublicKey returns the raw public key as hex
func (p *IdentityProvider) GetPublicKey() (string, error) {
	id, err := p.GetIdentity()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(id.PublicKey()), nil
}
