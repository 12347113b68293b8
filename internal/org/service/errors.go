package service

import (
	"custodia/internal/org/models"
	dErrors "custodia/pkg/domain-errors"
)

// Error constructors shared by the service operations. Not-found responses
// never reveal whether the resource exists for someone else.

func orgNotFound() error {
	return dErrors.New(dErrors.CodeNotFound, "organization not found").
		WithPublic(models.PublicCodeOrgNotFound)
}

func deviceNotFound() error {
	return dErrors.New(dErrors.CodeNotFound, "device not found").
		WithPublic(models.PublicCodeDeviceNotFound)
}

func deviceAlreadyRevoked() error {
	return dErrors.New(dErrors.CodeConflict, "device is already revoked").
		WithPublic(models.PublicCodeDeviceAlreadyRevoked)
}

func validation(err error) error {
	return dErrors.Wrap(err, dErrors.CodeValidation, "validation failed").
		WithPublic(models.PublicCodeValidation)
}

func internal(err error, msg string) error {
	return dErrors.Wrap(err, dErrors.CodeInternal, msg).
		WithPublic(models.PublicCodeInternal)
}
