package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/org/models"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/envelope"
	"custodia/pkg/requestcontext"
)

// Service defines the interface for organization operations.
type Service interface {
	CreateOrganization(ctx context.Context, ownerID id.UserID, p *models.CreateOrganizationParams) (*models.OrganizationCreated, error)
	ListOrganizations(ctx context.Context, ownerID id.UserID, page, limit int) (*models.OrganizationPage, error)
	GetOrganization(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (*models.Organization, error)
	RenameOrganization(ctx context.Context, orgID id.OrgID, ownerID id.UserID, name string) (*models.Organization, error)
	RemoveOrganization(ctx context.Context, orgID id.OrgID, ownerID id.UserID) error
	ListDevices(ctx context.Context, orgID id.OrgID, ownerID id.UserID) ([]*models.DeviceRegistration, error)
	RevokeDevice(ctx context.Context, orgID id.OrgID, deviceID id.DeviceID, ownerID id.UserID) error
	ListRevocations(ctx context.Context, orgID id.OrgID, ownerID id.UserID) ([]*models.DeviceRevocation, error)
	Keys(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (*models.KeyBundle, error)
}

// Handler handles organization, device and key-release endpoints.
type Handler struct {
	logger       *slog.Logger
	orgs         Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new organization Handler.
func New(
	orgs Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		orgs:         orgs,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the organization routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	orgRouter := chi.NewRouter()
	orgRouter.Use(middleware.Recovery(h.logger))
	orgRouter.Use(middleware.RequestID)
	orgRouter.Use(middleware.RequestTime)
	orgRouter.Use(middleware.Logger(h.logger))
	orgRouter.Use(middleware.Timeout(30 * time.Second))
	orgRouter.Use(middleware.ContentTypeJSON)
	orgRouter.Use(middleware.ClientInfo)
	orgRouter.Use(middleware.LatencyMiddleware(h.metrics))
	orgRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	orgRouter.Post("/organizations", h.handleCreateOrganization)
	orgRouter.Get("/organizations", h.handleListOrganizations)
	orgRouter.Get("/organizations/{orgID}", h.handleGetOrganization)
	orgRouter.Patch("/organizations/{orgID}", h.handleRenameOrganization)
	orgRouter.Delete("/organizations/{orgID}", h.handleRemoveOrganization)
	orgRouter.Get("/organizations/{orgID}/devices", h.handleListDevices)
	orgRouter.Post("/organizations/{orgID}/devices/{deviceID}/revoke", h.handleRevokeDevice)
	orgRouter.Get("/organizations/{orgID}/revocations", h.handleListRevocations)
	orgRouter.Get("/organizations/{orgID}/keys", h.handleKeys)

	r.Mount("/", orgRouter)
}

func (h *Handler) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(ctx, w)
	if !ok {
		return
	}

	var req createOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid create organization request", err)
		writeOK(w, envelope.Fail[models.OrganizationCreated](badRequest("invalid request body")))
		return
	}

	created, err := h.orgs.CreateOrganization(ctx, userID, req.toParams())
	if err != nil {
		h.writeError(ctx, w, err, "failed to create organization")
		return
	}
	writeResult(w, http.StatusCreated, envelope.OK(*created, "organization created"))
}

func (h *Handler) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(ctx, w)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.orgs.ListOrganizations(ctx, userID, page, limit)
	if err != nil {
		h.writeError(ctx, w, err, "failed to list organizations")
		return
	}
	writeOK(w, envelope.OK(*result, ""))
}

func (h *Handler) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(ctx, w)
	if !ok {
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeOK(w, envelope.Fail[models.Organization](badRequest("invalid organization id")))
		return
	}

	org, err := h.orgs.GetOrganization(ctx, orgID, userID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load organization")
		return
	}
	writeOK(w, envelope.OK(*org, ""))
}

func (h *Handler) handleRenameOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(ctx, w)
	if !ok {
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeOK(w, envelope.Fail[models.Organization](badRequest("invalid organization id")))
		return
	}

	var req renameOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid rename organization request", err)
		writeOK(w, envelope.Fail[models.Organization](badRequest("invalid request body")))
		return
	}
	if err := req.validate(); err != nil {
		writeOK(w, envelope.Fail[models.Organization](err))
		return
	}

	org, err := h.orgs.RenameOrganization(ctx, orgID, userID, req.Name)
	if err != nil {
		h.writeError(ctx, w, err, "failed to rename organization")
		return
	}
	writeOK(w, envelope.OK(*org, "organization renamed"))
}

func (h *Handler) handleRemoveOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(ctx, w)
	if !ok {
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeOK(w, envelope.Fail[struct{}](badRequest("invalid organization id")))
		return
	}

	if err := h.orgs.RemoveOrganization(ctx, orgID, userID); err != nil {
		h.writeError(ctx, w, err, "failed to remove organization")
		return
	}
	writeOK(w, envelope.OK(struct{}{}, "organization removed"))
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(ctx, w)
	if !ok {
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeOK(w, envelope.Fail[[]*models.DeviceRegistration](badRequest("invalid organization id")))
		return
	}

	devices, err := h.orgs.ListDevices(ctx, orgID, userID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to list devices")
		return
	}
	writeOK(w, envelope.OK(devices, ""))
}

func (h *Handler) handleRevokeDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(ctx, w)
	if !ok {
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeOK(w, envelope.Fail[struct{}](badRequest("invalid organization id")))
		return
	}
	deviceID, err := id.ParseDeviceID(chi.URLParam(r, "deviceID"))
	if err != nil {
		writeOK(w, envelope.Fail[struct{}](badRequest("invalid device id")))
		return
	}

	if err := h.orgs.RevokeDevice(ctx, orgID, deviceID, userID); err != nil {
		h.writeError(ctx, w, err, "failed to revoke device")
		return
	}
	writeOK(w, envelope.OK(struct{}{}, "device revoked"))
}

func (h *Handler) handleListRevocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(ctx, w)
	if !ok {
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeOK(w, envelope.Fail[[]*models.DeviceRevocation](badRequest("invalid organization id")))
		return
	}

	records, err := h.orgs.ListRevocations(ctx, orgID, userID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to list revocations")
		return
	}
	writeOK(w, envelope.OK(records, ""))
}

func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(ctx, w)
	if !ok {
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeOK(w, envelope.Fail[models.KeyBundle](badRequest("invalid organization id")))
		return
	}

	bundle, err := h.orgs.Keys(ctx, orgID, userID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to release keys")
		return
	}
	writeOK(w, envelope.OK(*bundle, ""))
}

// authenticatedUser pulls the user set by RequireAuth out of the context.
func (h *Handler) authenticatedUser(ctx context.Context, w http.ResponseWriter) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		// Only reachable if the route is registered without RequireAuth.
		h.logger.ErrorContext(ctx, "user id missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx))
		writeOK(w, envelope.Fail[struct{}](dErrors.New(dErrors.CodeInternal, "authentication context error")))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error())
	} else {
		h.logWarn(ctx, msg, err)
	}
	writeOK(w, envelope.Fail[struct{}](err))
}

func (h *Handler) logWarn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error())
}

// writeOK writes the envelope with its own status code.
func writeOK[T any](w http.ResponseWriter, result envelope.Result[T]) {
	writeResult(w, result.StatusCode(), result)
}

func writeResult[T any](w http.ResponseWriter, status int, result envelope.Result[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}
