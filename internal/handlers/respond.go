// Package handlers regroupe les handlers gin de la vitrine. Les sous-paquets
// user, payement et admin partagent Base pour les réponses d'erreur.
package handlers

import (
	"errors"
	"net/http"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/middleware"
	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
	"usha_storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Base struct {
	Sessions *session.Store
	Log      *zap.Logger
}

// Fail traduit une erreur en réponse JSON. Un 401 du service de données efface
// la session : l'UI renvoie alors vers la connexion.
func (b *Base) Fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{"error": message(err)}

	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		body["details"] = ve.Problems
	}
	var pd *apperr.PaymentDeclinedError
	if errors.As(err, &pd) && pd.Code != "" {
		body["code"] = pd.Code
	}

	if apperr.IsAuthorization(err) && b.Sessions != nil {
		_ = b.Sessions.Clear(c.Writer, c.Request)
		body["redirect"] = "/signin"
	}
	if errors.Is(err, apperr.ErrPaymentUnavailable) {
		body["redirect"] = "/cart"
	}

	log := b.Log.With(zap.Int("status", status), zap.String("request_id", c.GetString(utils.RequestIDKey)), zap.Error(err))
	if status >= http.StatusInternalServerError {
		log.Error("❌ " + c.Request.Method + " " + c.FullPath())
	} else {
		log.Info("⚠️ " + c.Request.Method + " " + c.FullPath())
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest pour un corps ou un paramètre illisible
func (b *Base) BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
}

// IDParam lit un identifiant de route ; répond 400 et retourne false s'il est invalide
func (b *Base) IDParam(c *gin.Context, name string) (models.ID, bool) {
	id, err := models.ParseID(c.Param(name))
	if err != nil {
		b.BadRequest(c, err)
		return 0, false
	}
	return id, true
}

func (b *Base) Session(c *gin.Context) session.Context {
	return middleware.CurrentSession(c)
}

func message(err error) string {
	var (
		ve  *apperr.ValidationError
		pd  *apperr.PaymentDeclinedError
		rem *apperr.RemoteError
	)
	switch {
	case errors.As(err, &ve):
		return "Données invalides"
	case errors.As(err, &pd):
		if pd.Message != "" {
			return pd.Message
		}
		return "Paiement refusé"
	case apperr.IsAuthorization(err):
		return "Session expirée, veuillez vous reconnecter"
	case apperr.IsNotFound(err):
		return "Ressource introuvable"
	case errors.Is(err, apperr.ErrPaymentUnavailable):
		return "Paiement indisponible"
	case errors.As(err, &rem) && rem.Status < http.StatusInternalServerError && rem.Message != "":
		return rem.Message
	}
	switch apperr.HTTPStatus(err) {
	case http.StatusBadGateway:
		return "Service indisponible, réessayez plus tard"
	case http.StatusInternalServerError:
		return "Erreur interne"
	}
	return err.Error()
}
