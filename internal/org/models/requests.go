package models

import (
	id "custodia/pkg/domain"
)

// DeviceInfo is the validated registration payload for the first device,
// supplied with organization creation. All key material is client-encrypted.
type DeviceInfo struct {
	DeviceName         string  `json:"deviceName"`
	DeviceFingerprint  string  `json:"deviceFingerprint"`
	PublicKey          string  `json:"publicKey"`
	EncryptedDeviceKey string  `json:"encryptedDeviceKey"`
	KeyDerivationSalt  string  `json:"keyDerivationSalt"`
	EncryptionIV       string  `json:"encryptionIv"`
	CombinationSalt    string  `json:"combinationSalt"`
	PINSalt            *string `json:"pinSalt,omitempty"`
}

// CreateOrganizationParams is the validated input of the atomic creation
// transaction.
type CreateOrganizationParams struct {
	Name                string
	PublicKey           string
	EncryptedPrivateKey string
	KeyDerivationSalt   string
	EncryptionIV        string
	MKDF                MKDFConfig
	Device              DeviceInfo
}

// OrganizationCreated is the result of the creation transaction.
type OrganizationCreated struct {
	OrganizationID       id.OrgID    `json:"organizationId"`
	DeviceRegistrationID id.DeviceID `json:"deviceRegistrationId"`
}

// Pagination bounds for organization listing.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageInfo summarizes a paginated listing.
type PageInfo struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// OrganizationPage is one page of an owner's organizations, newest first.
type OrganizationPage struct {
	Organizations []*Organization `json:"organizations"`
	PageInfo      PageInfo        `json:"pagination"`
}

// ClampPage normalizes a requested page number into [1, inf).
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampLimit normalizes a requested page size into [1, MaxPageLimit],
// defaulting when unset.
func ClampLimit(limit int) int {
	if limit < 1 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// NewPageInfo derives the pagination summary for a clamped (page, limit).
func NewPageInfo(total, page, limit int) PageInfo {
	pages := (total + limit - 1) / limit
	return PageInfo{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1 && total > 0,
	}
}
