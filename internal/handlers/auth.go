package handlers

import (
	"context"
	"net/http"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
	"usha_storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthService délègue l'authentification au service de données
type AuthService interface {
	Signin(ctx context.Context, creds models.SigninCredentials) (models.AuthResponse, error)
	Signup(ctx context.Context, data models.SignupData) (models.AuthResponse, error)
}

// UserCache : état en mémoire par utilisateur, oublié à la déconnexion
type UserCache interface {
	Forget(userID models.ID)
}

type AuthHandler struct {
	*Base
	Auth    AuthService
	Auditor *utils.Auditor
	Caches  []UserCache
}

// ================== AUTH ==================

func (h *AuthHandler) Signin(c *gin.Context) {
	var creds models.SigninCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		h.BadRequest(c, err)
		return
	}

	res, err := h.Auth.Signin(c.Request.Context(), creds)
	if err != nil {
		h.Auditor.LogFailedAction(c, utils.ACTION_LOGIN_FAILED, utils.RESOURCE_AUTH, creds.Email, err.Error())
		h.Fail(c, err)
		return
	}
	if !h.openSession(c, res) {
		return
	}
	h.Auditor.LogAction(c, utils.ACTION_LOGIN_SUCCESS, utils.RESOURCE_AUTH, res.User.ID.String(), nil, nil)
	h.Log.Info("✅ Connexion réussie", zap.Stringer("user_id", res.User.ID), zap.String("role", res.User.Role))
	c.JSON(http.StatusOK, gin.H{"user": res.User})
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var data models.SignupData
	if err := c.ShouldBindJSON(&data); err != nil {
		h.BadRequest(c, err)
		return
	}

	res, err := h.Auth.Signup(c.Request.Context(), data)
	if err != nil {
		h.Fail(c, err)
		return
	}
	// certains déploiements ne renvoient pas de token à l'inscription
	if res.AccessToken != "" && !h.openSession(c, res) {
		return
	}
	h.Log.Info("✅ Utilisateur inscrit", zap.Stringer("user_id", res.User.ID))
	c.JSON(http.StatusCreated, gin.H{"user": res.User, "authenticated": res.AccessToken != ""})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if sess, err := h.Sessions.Load(c.Request); err == nil {
		c.Set(utils.SessionKey, sess)
		h.Auditor.LogAction(c, utils.ACTION_LOGOUT, utils.RESOURCE_AUTH, sess.UserID.String(), nil, nil)
		for _, cache := range h.Caches {
			cache.Forget(sess.UserID)
		}
	}
	if err := h.Sessions.Clear(c.Writer, c.Request); err != nil {
		h.Log.Warn("⚠️ Erreur suppression session", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Déconnecté"})
}

func (h *AuthHandler) openSession(c *gin.Context, res models.AuthResponse) bool {
	sess := session.Context{Token: res.AccessToken, UserID: res.User.ID, Role: res.User.Role}
	if err := h.Sessions.Save(c.Writer, c.Request, sess); err != nil {
		h.Log.Error("❌ Erreur création session", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Erreur création session"})
		return false
	}
	c.Set(utils.SessionKey, sess)
	return true
}
