package utils

import (
	"encoding/json"
	"sync"
	"time"

	"usha_storefront/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"go.uber.org/zap"
)

type AuditLog struct {
	ID         gocql.UUID
	UserID     int64
	UserRole   string
	Action     string
	Resource   string
	ResourceID string
	OldValue   string
	NewValue   string
	IPAddress  string
	UserAgent  string
	Success    bool
	ErrorMsg   string
	Timestamp  time.Time
	RequestID  string
}

// Auditor écrit les logs d'audit dans ScyllaDB (table audit_logs) de façon
// asynchrone ; sans session ScyllaDB, ils partent dans le journal applicatif.
type Auditor struct {
	session *gocql.Session
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewAuditor(session *gocql.Session, log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{session: session, log: log.Named("audit")}
}

// LogAction enregistre une action réussie
func (a *Auditor) LogAction(c *gin.Context, action, resource, resourceID string, oldValue, newValue any) {
	a.record(newEntry(c, action, resource, resourceID, oldValue, newValue, true, ""))
}

// LogFailedAction enregistre une action échouée
func (a *Auditor) LogFailedAction(c *gin.Context, action, resource, resourceID, errorMsg string) {
	a.record(newEntry(c, action, resource, resourceID, nil, nil, false, errorMsg))
}

// Wait attend la fin des écritures en cours (arrêt du serveur, tests)
func (a *Auditor) Wait() {
	a.wg.Wait()
}

func (a *Auditor) record(entry AuditLog) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.write(entry); err != nil {
			a.log.Error("❌ Erreur enregistrement log audit", zap.String("action", entry.Action), zap.Error(err))
		}
	}()
}

func (a *Auditor) write(e AuditLog) error {
	if a.session == nil {
		a.log.Info("📝 audit",
			zap.String("action", e.Action),
			zap.String("resource", e.Resource),
			zap.String("resource_id", e.ResourceID),
			zap.Int64("user_id", e.UserID),
			zap.Bool("success", e.Success),
			zap.String("error", e.ErrorMsg),
			zap.String("request_id", e.RequestID))
		return nil
	}

	query := `
		INSERT INTO audit_logs (
			id, user_id, user_role, action, resource, resource_id,
			old_value, new_value, ip_address, user_agent, success,
			error_msg, timestamp, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return a.session.Query(query,
		e.ID, e.UserID, e.UserRole, e.Action,
		e.Resource, e.ResourceID, e.OldValue, e.NewValue,
		e.IPAddress, e.UserAgent, e.Success, e.ErrorMsg,
		e.Timestamp, e.RequestID,
	).Exec()
}

// newEntry lit l'identité et la requête depuis le contexte gin
func newEntry(c *gin.Context, action, resource, resourceID string, oldValue, newValue any, success bool, errorMsg string) AuditLog {
	entry := AuditLog{
		ID:         gocql.TimeUUID(),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		OldValue:   marshalValue(oldValue),
		NewValue:   marshalValue(newValue),
		Success:    success,
		ErrorMsg:   errorMsg,
		Timestamp:  time.Now().UTC(),
	}
	if c == nil {
		return entry
	}
	if v, ok := c.Get(SessionKey); ok {
		if sess, ok := v.(session.Context); ok {
			entry.UserID = int64(sess.UserID)
			entry.UserRole = sess.Role
		}
	}
	entry.IPAddress = c.ClientIP()
	entry.UserAgent = c.GetHeader("User-Agent")
	entry.RequestID = c.GetString(RequestIDKey)
	return entry
}

func marshalValue(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Clés du contexte gin partagées avec les middlewares
const (
	SessionKey   = "session"
	RequestIDKey = "request_id"
)

// Actions d'audit
const (
	ACTION_ORDER_STATUS_UPDATE  = "order.status_update"
	ACTION_PAYMENT_REFUND       = "payment.refund"
	ACTION_RECONCILIATION_RETRY = "reconciliation.retry"
	ACTION_LOGIN_SUCCESS        = "auth.login_success"
	ACTION_LOGIN_FAILED         = "auth.login_failed"
	ACTION_LOGOUT               = "auth.logout"
)

// Ressources d'audit
const (
	RESOURCE_ORDER          = "order"
	RESOURCE_PAYMENT        = "payment"
	RESOURCE_RECONCILIATION = "reconciliation_gap"
	RESOURCE_AUTH           = "auth"
)
