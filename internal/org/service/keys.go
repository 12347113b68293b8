package service

import (
	"context"
	"errors"
	"time"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Keys releases the organization's encrypted key bundle to its owner. When
// the owner still has an active device, the most recently used one is
// attached; with no active device the bundle ships without device info and
// the client falls back to its remaining unlock factors.
func (s *Service) Keys(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (*models.KeyBundle, error) {
	ctx, span := s.tracer.Start(ctx, "org.Keys")
	defer span.End()
	start := time.Now()

	org, err := s.orgs.FindByIDAndOwner(ctx, orgID, ownerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, orgNotFound()
		}
		return nil, internal(err, "failed to load organization")
	}

	bundle := &models.KeyBundle{
		OrganizationID:      org.ID,
		PublicKey:           org.PublicKey,
		EncryptedPrivateKey: org.EncryptedPrivateKey,
		KeyDerivationSalt:   org.KeyDerivationSalt,
		EncryptionIV:        org.EncryptionIV,
		MKDF:                org.MKDF,
	}

	device, err := s.devices.FindActiveForUnlock(ctx, orgID, ownerID)
	switch {
	case err == nil:
		if touchErr := s.devices.TouchLastUsed(ctx, device.ID, requestcontext.Now(ctx)); touchErr != nil {
			// The release already succeeded; a missed touch only skews
			// future device selection.
			s.logWarn(ctx, "failed to update device last_used",
				"device_id", device.ID,
				"error", touchErr)
		}
		bundle.DeviceInfo = device.UnlockInfo()
	case errors.Is(err, sentinel.ErrNotFound):
		// No active device: release the bundle without one.
	default:
		return nil, internal(err, "failed to select unlock device")
	}

	if s.metrics != nil {
		s.metrics.ObserveKeyRelease(start)
	}
	return bundle, nil
}
