package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dshuvalov/jumper-challenge/adapters/cookiesession"
	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/service"
	"github.com/gin-gonic/gin"
)

// VerifyRequest is the body of POST /auth/verify
type VerifyRequest struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// Me returns the wallet bound to the session
//
// @Summary      Current wallet
// @Description  Returns the wallet address bound to the session.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  ServiceResponse
// @Failure      422  {object}  ServiceResponse
// @Router       /auth/me [get]
func (h *AuthHandlers) Me(c *gin.Context, sess *cookiesession.Session) {
	address, err := h.authService.Me(sess)
	if err != nil {
		respond(c, http.StatusUnprocessableEntity, "Unprocessable entity error message", nil)
		return
	}

	respond(c, http.StatusOK, "Wallet defined", gin.H{"walletAddress": address})
}

// Nonce issues a SIWE nonce
//
// @Summary      Issue nonce
// @Description  Generates a single-use nonce and binds it to the session.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  ServiceResponse
// @Failure      500  {object}  ServiceResponse
// @Router       /auth/nonce [get]
func (h *AuthHandlers) Nonce(c *gin.Context, sess *cookiesession.Session) {
	nonce, err := h.authService.IssueNonce(c.Request.Context(), sess)
	if err != nil {
		h.internalError(c, "failed to issue nonce", err)
		return
	}

	respond(c, http.StatusOK, "Nonce created", gin.H{"nonce": nonce})
}

// Verify authenticates the session with a signed SIWE message
//
// @Summary      Verify SIWE message
// @Description  Checks the signed message against the session nonce and binds the wallet on success.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        verifyRequest  body      VerifyRequest  true  "Signed SIWE message"
// @Success      200            {object}  ServiceResponse
// @Failure      400            {object}  ServiceResponse
// @Failure      422            {object}  ServiceResponse
// @Failure      500            {object}  ServiceResponse
// @Router       /auth/verify [post]
func (h *AuthHandlers) Verify(c *gin.Context, sess *cookiesession.Session) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	_, err := h.authService.Verify(c.Request.Context(), sess, req.Message, req.Signature)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, core.ErrMalformedMessage):
			message = "Invalid SiweMessage"
		case errors.Is(err, core.ErrMessageExpired):
			message = "SiweMessage expired"
		case errors.Is(err, core.ErrDomainMismatch):
			message = "SiweMessage domain mismatch"
		case errors.Is(err, core.ErrInvalidSignature):
			message = "SiweMessage verification failed"
		case errors.Is(err, core.ErrNonceMismatch):
			message = "Invalid nonce"
		default:
			h.internalError(c, "failed to verify siwe message", err)
			return
		}

		h.logger.InfoContext(c.Request.Context(), "siwe verification rejected", "reason", err)
		respond(c, http.StatusUnprocessableEntity, message, nil)
		return
	}

	respond(c, http.StatusOK, "Successfully verified", gin.H{"ok": true})
}

// Logout destroys the session
//
// @Summary      Logout
// @Description  Destroys the session and expires the cookie.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  ServiceResponse
// @Failure      401  {object}  ServiceResponse
// @Router       /auth/logout [post]
func (h *AuthHandlers) Logout(c *gin.Context, sess *cookiesession.Session) {
	if err := h.authService.Logout(c.Request.Context(), sess); err != nil {
		h.internalError(c, "failed to logout", err)
		return
	}

	respond(c, http.StatusOK, "Logout succeeded", gin.H{"ok": true})
}

func (h *AuthHandlers) internalError(c *gin.Context, msg string, err error) {
	h.logger.ErrorContext(c.Request.Context(), msg, "error", err)
	respond(c, http.StatusInternalServerError, msgInternalError, nil)
}
