package handler

import (
	"custodia/internal/org/models"
	dErrors "custodia/pkg/domain-errors"
)

// createOrganizationRequest is the JSON body of POST /organizations.
type createOrganizationRequest struct {
	Name                string            `json:"name"`
	PublicKey           string            `json:"publicKey"`
	EncryptedPrivateKey string            `json:"encryptedPrivateKey"`
	KeyDerivationSalt   string            `json:"keyDerivationSalt"`
	EncryptionIV        string            `json:"encryptionIv"`
	MKDF                models.MKDFConfig `json:"mkdf"`
	DeviceInfo          models.DeviceInfo `json:"deviceInfo"`
}

func (r *createOrganizationRequest) toParams() *models.CreateOrganizationParams {
	return &models.CreateOrganizationParams{
		Name:                r.Name,
		PublicKey:           r.PublicKey,
		EncryptedPrivateKey: r.EncryptedPrivateKey,
		KeyDerivationSalt:   r.KeyDerivationSalt,
		EncryptionIV:        r.EncryptionIV,
		MKDF:                r.MKDF,
		Device:              r.DeviceInfo,
	}
}

// renameOrganizationRequest is the JSON body of PATCH /organizations/{orgID}.
type renameOrganizationRequest struct {
	Name string `json:"name"`
}

func (r *renameOrganizationRequest) validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required").
			WithPublic(models.PublicCodeValidation)
	}
	return nil
}

func badRequest(msg string) error {
	return dErrors.New(dErrors.CodeValidation, msg).
		WithPublic(models.PublicCodeValidation)
}
