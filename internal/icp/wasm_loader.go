package icp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"go.uber.org/zap"
)

// Payload is an immutable snapshot of the wasm module and its sha256. Callers must not modify Bytes.
type Payload struct {
	Bytes []byte
	Hash  string
}

type AssetInfo struct {
	WasmSize int    `json:"wasm_size"`
	WasmHash string `json:"wasm_hash"`
}

// WasmLoader loads the wallet wasm once and caches it together with its hash
type WasmLoader struct {
	source  PayloadSource
	payload *utils.Lazy[*Payload]
	logger  *zap.Logger
}

func NewWasmLoader(source PayloadSource, logger *zap.Logger) *WasmLoader {
	l := &WasmLoader{
		source: source,
		logger: logger,
	}
	l.payload = utils.NewLazy(l.load)
	return l
}

func (l *WasmLoader) load(ctx context.Context) (*Payload, error) {
	data, err := l.source.Read(ctx)
	if err != nil {
		l.logger.Error("Failed to load WASM file", zap.String("location", l.source.Location()), zap.Error(err))
		return nil, err
	}

	digest := sha256.Sum256(data)
	payload := &Payload{Bytes: data, Hash: hex.EncodeToString(digest[:])}
	l.logger.Info("WASM loaded",
		zap.String("location", l.source.Location()),
		zap.Int("bytes", len(data)),
		zap.String("hash", payload.Hash),
	)
	return payload, nil
}

// GetSnapshot returns the bytes and hash as one consistent pair
func (l *WasmLoader) GetSnapshot(ctx context.Context) (*Payload, error) {
	return l.payload.Get(ctx)
}

// GetPayload returns a copy of the cached wasm bytes, loading them on first use
func (l *WasmLoader) GetPayload(ctx context.Context) ([]byte, error) {
	payload, err := l.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), payload.Bytes...), nil
}

// GetPayloadHash returns the hex sha256 of the cached wasm bytes
func (l *WasmLoader) GetPayloadHash(ctx context.Context) (string, error) {
	payload, err := l.GetSnapshot(ctx)
	if err != nil {
		return "", err
	}
	return payload.Hash, nil
}

// Validate reports whether the payload is currently loadable
func (l *WasmLoader) Validate(ctx context.Context) bool {
	_, err := l.GetSnapshot(ctx)
	return err == nil
}

// Reload drops the cached payload and loads it again. Bytes and hash are replaced together.
func (l *WasmLoader) Reload(ctx context.Context) error {
	l.payload.Reset()
	if _, err := l.payload.Get(ctx); err != nil {
		return fmt.Errorf("failed to reload wasm: %w", err)
	}
	return nil
}

// AssetInfo describes the cached payload without loading it
func (l *WasmLoader) AssetInfo() AssetInfo {
	payload, ok := l.payload.Peek()
	if !ok {
		return AssetInfo{}
	}
	return AssetInfo{WasmSize: len(payload.Bytes), WasmHash: payload.Hash}
}
