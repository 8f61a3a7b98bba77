package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/phrazzld/eventhost/internal/api/shared"
	"github.com/phrazzld/eventhost/internal/service/auth"
)

// Authenticator verifies the admin password.
type Authenticator interface {
	Authenticate(ctx context.Context, password string) error
}

// AuthHandler issues access tokens.
type AuthHandler struct {
	authenticator Authenticator
	jwtService    auth.JWTService
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(authenticator Authenticator, jwtService auth.JWTService) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		jwtService:    jwtService,
	}
}

// IssueToken handles POST /api/auth/token.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.authenticator.Authenticate(r.Context(), req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, GetSafeErrorMessage(err))
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to authenticate", err)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(r.Context(), auth.AdminSubject)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	})
}
