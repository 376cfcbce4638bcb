package database

import (
	"fmt"

	"github.com/gocql/gocql"
)

// Tables gérées par le service. Les écarts sont indexés par intention de paiement.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reconciliation_gaps (
		payment_intent_id text PRIMARY KEY,
		id text,
		user_id bigint,
		amount_minor bigint,
		last_error text,
		attempts int,
		resolved boolean,
		created_at timestamp,
		resolved_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id timeuuid PRIMARY KEY,
		user_id bigint,
		user_role text,
		action text,
		resource text,
		resource_id text,
		old_value text,
		new_value text,
		ip_address text,
		user_agent text,
		success boolean,
		error_msg text,
		timestamp timestamp,
		request_id text
	)`,
}

// EnsureSchema crée les tables manquantes
func EnsureSchema(session *gocql.Session) error {
	for _, stmt := range schema {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("schéma ScyllaDB: %w", err)
		}
	}
	return nil
}
