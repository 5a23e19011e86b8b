package services

import "errors"

var (
	ErrNotFound          = errors.New("wallet not found")
	ErrValidation        = errors.New("validation failed")
	ErrResourceNotLive   = errors.New("canister could not be confirmed live")
	ErrInvalidTransition = errors.New("invalid wallet status transition")
	// ErrOrphanedResource means a canister was created remotely but its local record could not be written
	ErrOrphanedResource = errors.New("canister created without a local record")
)
