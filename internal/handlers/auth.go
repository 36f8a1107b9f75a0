package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopmate/backend/internal/auth"
	"github.com/shopmate/backend/internal/config"
	"github.com/shopmate/backend/internal/models"
	"github.com/shopmate/backend/internal/services"
	"github.com/shopmate/backend/internal/store"
)

type AuthHandler struct {
	DB     *sql.DB
	Cfg    *config.Config
	Images services.ImageStore
	Mailer services.Mailer
}

// sendToken issues a JWT for the user, sets the session cookie, and writes
// the success envelope with the user and token attached.
func (h *AuthHandler) sendToken(c *gin.Context, status int, message string, user *models.User) {
	token, err := auth.IssueToken([]byte(h.Cfg.Auth.JWTSecret), user.ID, h.Cfg.Auth.TokenTTL)
	if err != nil {
		handleError(c, err)
		return
	}

	c.SetCookie("token", token, int(h.Cfg.Auth.TokenTTL.Seconds()), "/", "", h.Cfg.Auth.CookieSecure, true)
	respond(c, status, message, gin.H{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "please provide all required fields")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	user, err := store.CreateUser(c.Request.Context(), h.DB, req.Name, req.Email, hash)
	if err != nil {
		handleError(c, err)
		return
	}

	h.sendToken(c, http.StatusCreated, "user registered successfully", user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "please provide all required fields")
		return
	}

	user, err := store.GetUserByEmail(c.Request.Context(), h.DB, req.Email)
	if err != nil || !auth.CheckPassword(user.Password, req.Password) {
		respondError(c, http.StatusBadRequest, "invalid email or password")
		return
	}

	h.sendToken(c, http.StatusOK, "logged in", user)
}

func (h *AuthHandler) Me(c *gin.Context) {
	respond(c, http.StatusOK, "user fetched", gin.H{"user": currentUser(c)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", h.Cfg.Auth.CookieSecure, true)
	respond(c, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		respondError(c, http.StatusBadRequest, "please provide an email")
		return
	}

	ctx := c.Request.Context()

	user, err := store.GetUserByEmail(ctx, h.DB, req.Email)
	if err != nil {
		handleError(c, err)
		return
	}

	token, tokenHash, err := auth.NewResetToken()
	if err != nil {
		handleError(c, err)
		return
	}

	expire := time.Now().Add(auth.ResetTokenTTL)
	if err := store.SetResetToken(ctx, h.DB, user.Email, tokenHash, expire); err != nil {
		handleError(c, err)
		return
	}

	frontendURL := strings.TrimRight(c.Query("frontendUrl"), "/")
	resetURL := fmt.Sprintf("%s/password/reset/%s", frontendURL, token)

	err = h.Mailer.Send(ctx, user.Email, "Reset Password Recovery", services.ResetPasswordEmail(resetURL))
	if err != nil {
		// A failed delivery must not leave a live reset token behind.
		if clearErr := store.ClearResetToken(ctx, h.DB, user.Email); clearErr != nil {
			handleError(c, clearErr)
			return
		}
		respondError(c, http.StatusInternalServerError, "email could not be sent, try again later")
		return
	}

	respond(c, http.StatusOK, fmt.Sprintf("email sent to %s successfully", user.Email), nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password != req.ConfirmPassword {
		respondError(c, http.StatusBadRequest, "passwords do not match")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	tokenHash := auth.HashResetToken(c.Param("token"))

	user, err := store.GetUserByResetToken(ctx, h.DB, tokenHash)
	if err != nil {
		respondError(c, http.StatusBadRequest, "password reset token is invalid or has expired")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	updated, err := store.ResetPassword(ctx, h.DB, user.ID, hash)
	if err != nil {
		handleError(c, err)
		return
	}

	h.sendToken(c, http.StatusOK, "password reset successfully", updated)
}

func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req struct {
		CurrentPassword    string `json:"currentPassword"`
		NewPassword        string `json:"newPassword"`
		ConfirmNewPassword string `json:"confirmNewPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmNewPassword == "" {
		respondError(c, http.StatusBadRequest, "please provide all required fields")
		return
	}

	user := currentUser(c)
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		respondError(c, http.StatusBadRequest, "current password is incorrect")
		return
	}
	if req.NewPassword != req.ConfirmNewPassword {
		respondError(c, http.StatusBadRequest, "new password does not match")
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		handleError(c, err)
		return
	}

	if err := store.UpdatePassword(c.Request.Context(), h.DB, user.ID, hash); err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "password updated successfully", nil)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.TrimSpace(c.PostForm("email"))
	if name == "" || email == "" {
		respondError(c, http.StatusBadRequest, "name and email cannot be empty")
		return
	}

	ctx := c.Request.Context()
	user := currentUser(c)

	var avatar *models.Image
	if file, err := c.FormFile("avatar"); err == nil {
		src, err := file.Open()
		if err != nil {
			handleError(c, err)
			return
		}
		defer src.Close()

		if user.Avatar.AssetID != "" {
			if err := h.Images.Destroy(ctx, user.Avatar.AssetID); err != nil {
				handleError(c, err)
				return
			}
		}

		uploaded, err := h.Images.Upload(ctx, file.Filename, src)
		if err != nil {
			handleError(c, err)
			return
		}
		avatar = &uploaded
	}

	updated, err := store.UpdateProfile(ctx, h.DB, user.ID, name, email, avatar)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "profile updated", gin.H{"user": updated})
}
