package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"tokensmith/internal/dto"
	"tokensmith/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// acceptedMessage is the single response body for every issuance request.
// Unknown address, rate-limited and issued all look the same from outside.
const acceptedMessage = "if the account exists, an email has been sent"

type TokenHandler struct {
	Service  *service.TokenService
	Validate *validator.Validate
	Hasher   service.PasswordHasher
}

func NewTokenHandler(svc *service.TokenService, validate *validator.Validate, hasher service.PasswordHasher) *TokenHandler {
	return &TokenHandler{
		Service:  svc,
		Validate: validate,
		Hasher:   hasher,
	}
}

func (h *TokenHandler) RequestEmailVerification(c echo.Context) error {
	var req dto.RequestTokenRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.RequestEmailVerification(c.Request().Context(), req.Email); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusAccepted, dto.AcceptedResponse{Message: acceptedMessage})
}

func (h *TokenHandler) RequestPasswordReset(c echo.Context) error {
	var req dto.RequestTokenRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusAccepted, dto.AcceptedResponse{Message: acceptedMessage})
}

func (h *TokenHandler) VerifyEmail(c echo.Context) error {
	var req dto.VerifyEmailRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TokenHandler) ResetPassword(c echo.Context) error {
	var req dto.PasswordResetRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}

	// The engine stores the secret verbatim, so hashing happens here before
	// the token is consumed.
	hash, err := h.Hasher.Hash(req.NewPassword)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, errors.New("internal error"))
	}

	if err := h.Service.ResetPassword(c.Request().Context(), req.Token, hash); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TokenHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"message": err.Error()})
}

func writeServiceError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidToken):
		// One shape for never-existed, expired and exhausted alike.
		return writeError(c, http.StatusUnauthorized, service.ErrInvalidToken)
	}
	if status == http.StatusInternalServerError {
		return writeError(c, status, errors.New("internal error"))
	}
	return writeError(c, status, err)
}
