package icp

import "errors"

var (
	ErrConfiguration    = errors.New("configuration error")
	ErrCredentialFormat = errors.New("invalid credential format")
	ErrInvalidPrincipal = errors.New("invalid principal")

	ErrAssetNotFound = errors.New("wasm asset not found")
	ErrAssetLoad     = errors.New("failed to load wasm asset")

	ErrResourceCreation = errors.New("failed to create canister")
	ErrInstallation     = errors.New("failed to install code")
	ErrStatusQuery      = errors.New("failed to get canister status")
	ErrResourceDeletion = errors.New("failed to delete canister")
)
