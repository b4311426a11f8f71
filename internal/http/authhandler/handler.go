package authhandler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Chebah-Amine/bid-marketplace/internal/http/authmw"
	"github.com/Chebah-Amine/bid-marketplace/internal/services/account"
	"github.com/Chebah-Amine/bid-marketplace/internal/session"
)

type Handler struct {
	svc        account.IAccountService
	sessions   *session.Store
	sessionTTL time.Duration
}

func New(svc account.IAccountService, sessions *session.Store, sessionTTL time.Duration) *Handler {
	return &Handler{svc: svc, sessions: sessions, sessionTTL: sessionTTL}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/register", h.registerForm)
	r.POST("/register", h.register)
	r.GET("/login", h.loginForm)
	r.POST("/login", h.login)
	r.GET("/logout", h.logout)
}

func (h *Handler) registerForm(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{})
}

// @Summary		Create an account
// @Description	Registers a user, opens a session and redirects to the index.
// @Description	Mismatched passwords or a taken username re-render the form.
// @Tags			Auth
// @Param			body	body	RegisterBody	true	"Registration fields"
// @Success		302
// @Failure		200	{object}	MessageResponse
// @Router			/register [post]
func (h *Handler) register(c *gin.Context) {
	var body RegisterBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: err.Error()})
		return
	}

	user, err := h.svc.Register(c.Request.Context(), body.Username, body.Email, body.Password, body.Confirmation)
	switch {
	case errors.Is(err, account.ErrPasswordMismatch):
		c.JSON(http.StatusOK, MessageResponse{Message: "Passwords must match."})
		return
	case errors.Is(err, account.ErrUsernameTaken):
		c.JSON(http.StatusOK, MessageResponse{Message: "Username already taken."})
		return
	case err != nil:
		zap.L().Error("register", zap.Error(err))
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Something went wrong. Please try again later."})
		return
	}

	h.openSession(c, user.ID, user.Username)
}

func (h *Handler) loginForm(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{})
}

// @Summary		Sign in
// @Tags			Auth
// @Param			body	body	LoginBody	true	"Credentials"
// @Success		302
// @Failure		200	{object}	MessageResponse
// @Router			/login [post]
func (h *Handler) login(c *gin.Context) {
	var body LoginBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: err.Error()})
		return
	}

	user, err := h.svc.Authenticate(c.Request.Context(), body.Username, body.Password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		c.JSON(http.StatusOK, MessageResponse{Message: "Invalid username and/or password."})
		return
	}
	if err != nil {
		zap.L().Error("login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Something went wrong. Please try again later."})
		return
	}

	h.openSession(c, user.ID, user.Username)
}

// @Summary		Sign out
// @Tags			Auth
// @Success		302
// @Router			/logout [get]
func (h *Handler) logout(c *gin.Context) {
	if sess := authmw.CurrentSession(c); sess != nil {
		if err := h.sessions.Delete(c.Request.Context(), sess.Token); err != nil {
			zap.L().Error("logout", zap.Error(err))
		}
	}
	c.SetCookie(session.CookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) openSession(c *gin.Context, userID int64, username string) {
	token, err := h.sessions.Create(c.Request.Context(), userID, username)
	if err != nil {
		zap.L().Error("session_create", zap.Error(err))
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Something went wrong. Please try again later."})
		return
	}
	c.SetCookie(session.CookieName, token, int(h.sessionTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}
