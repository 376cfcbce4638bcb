// Package api est le client REST du service de données distant. Chaque appel
// porte le jeton de la session passée en argument, expire après le timeout
// configuré et traverse un disjoncteur ; toute erreur est classée dans apperr.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/session"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const DefaultTimeout = 15 * time.Second

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *zap.Logger
	// MaxFailures ouvre le disjoncteur après N échecs consécutifs (réseau ou 5xx)
	MaxFailures uint32
	OpenTimeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*response]
	log     *zap.Logger
}

type response struct {
	status int
	body   []byte
}

// errServer fait compter un 5xx comme un échec pour le disjoncteur
var errServer = errors.New("erreur serveur")

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	log := opts.Logger.Named("api")
	breaker := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:    "data-service",
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.MaxFailures
		},
		// une annulation par l'appelant ne dit rien de la santé du service
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("⚡ disjoncteur", zap.String("name", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport),
		},
		breaker: breaker,
		log:     log,
	}
}

// do exécute une requête JSON. out peut être nil quand la réponse est ignorée.
func (c *Client) do(ctx context.Context, sess session.Context, method, path string, in, out any) error {
	op := method + " " + path

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encodage: %w", op, err)
		}
		payload = b
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.send(ctx, sess, method, path, payload)
	})
	if resp == nil {
		// pas de réponse : transport, timeout, disjoncteur ouvert ou contexte annulé
		c.log.Warn("❌ service de données injoignable", zap.String("op", op), zap.Error(err))
		return &apperr.NetworkError{Op: op, Err: err}
	}

	switch {
	case resp.status >= 200 && resp.status < 300:
		if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.body, out); err != nil {
			return &apperr.RemoteError{Op: op, Status: resp.status, Message: "réponse illisible: " + err.Error()}
		}
		return nil
	case resp.status == http.StatusUnauthorized:
		return &apperr.AuthorizationError{Op: op}
	case resp.status == http.StatusNotFound:
		return &apperr.NotFoundError{Op: op}
	default:
		msg := remoteMessage(resp.body)
		c.log.Warn("⚠️ réponse en erreur", zap.String("op", op), zap.Int("status", resp.status), zap.String("message", msg))
		return &apperr.RemoteError{Op: op, Status: resp.status, Message: msg}
	}
}

func (c *Client) send(ctx context.Context, sess session.Context, method, path string, payload []byte) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	out := &response{status: res.StatusCode, body: data}
	if res.StatusCode >= 500 {
		return out, errServer
	}
	return out, nil
}

// remoteMessage extrait "message" (chaîne ou liste) du corps d'erreur
func remoteMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	var s string
	if json.Unmarshal(payload.Message, &s) == nil && s != "" {
		return s
	}
	var list []string
	if json.Unmarshal(payload.Message, &list) == nil && len(list) > 0 {
		return strings.Join(list, ", ")
	}
	return payload.Error
}
