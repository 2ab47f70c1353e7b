package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/sandbox/identity"
	"github.com/congo-pay/walletgate/internal/sandbox/middleware"
	"github.com/congo-pay/walletgate/internal/sandbox/respond"
)

// Handler exposes the /auth endpoints.
type Handler struct {
	ids *identity.Service
	svc *Service
}

// NewHandler builds the auth HTTP handler.
func NewHandler(ids *identity.Service, svc *Service) *Handler {
	return &Handler{ids: ids, svc: svc}
}

// Register creates an account and returns it without logging in.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req model.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Malformed request body")
	}
	user, err := h.ids.Register(c.UserContext(), identity.Registration{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return fault(err)
	}
	return respond.Created(c, user.View(), "Registration successful")
}

// Login validates credentials and returns a token pair with the identity.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req model.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Malformed request body")
	}
	tokens, user, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fault(err)
	}
	return respond.OK(c, authResponse(tokens, user), "Login successful")
}

// Refresh exchanges a refresh token for a new pair.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req model.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Malformed request body")
	}
	tokens, user, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fault(err)
	}
	return respond.OK(c, authResponse(tokens, user), "Token refreshed")
}

// Logout drops the caller's refresh tokens when the presented access token is
// valid. It succeeds either way.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if token, ok := middleware.BearerToken(c.Get(fiber.HeaderAuthorization)); ok {
		if userID, err := h.svc.Verify(token); err == nil {
			h.svc.Logout(userID)
		}
	}
	return respond.OK(c, nil, "Logout successful")
}

func authResponse(tokens Tokens, user identity.User) model.AuthResponse {
	return model.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		User:         user.View(),
	}
}

func fault(err error) error {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return &respond.Fault{Status: http.StatusUnauthorized, Code: apierror.CodeInvalidCredentials, Message: "Invalid email or password"}
	case errors.Is(err, identity.ErrEmailTaken):
		return respond.NewFault(http.StatusConflict, apierror.CodeDuplicate, err)
	case errors.Is(err, ErrInvalidRefreshToken), errors.Is(err, ErrRefreshTokenExpired):
		return respond.NewFault(http.StatusBadRequest, apierror.CodeInvalidTransaction, err)
	default:
		return err
	}
}
