package models

// Stable machine-readable error codes surfaced in the result envelope.
// Absence and wrong ownership intentionally share one code per resource so
// existence is never leaked to non-owners.
const (
	PublicCodeOrgNotFound          = "ORG_NOT_FOUND"
	PublicCodeDeviceNotFound       = "DEVICE_NOT_FOUND"
	PublicCodeDeviceAlreadyRevoked = "DEVICE_ALREADY_REVOKED"
	PublicCodeValidation           = "VALIDATION_ERROR"
	PublicCodeInternal             = "INTERNAL_ERROR"
	PublicCodeUnknown              = "UNKNOWN_ERROR"
)
