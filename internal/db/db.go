package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            wa_id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT,
            profile_image TEXT,
            is_online BOOLEAN NOT NULL DEFAULT FALSE,
            last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS conversations (
            conversation_id TEXT PRIMARY KEY,
            participant_one TEXT NOT NULL,
            participant_two TEXT NOT NULL,
            created_by TEXT NOT NULL,
            last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS conversation_archives (
            conversation_id TEXT NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(conversation_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS conversation_mutes (
            conversation_id TEXT NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            muted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            muted_until TIMESTAMPTZ,
            PRIMARY KEY(conversation_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            message_id TEXT NOT NULL UNIQUE,
            conversation_id TEXT NOT NULL,
            wa_id TEXT NOT NULL,
            from_number TEXT NOT NULL,
            to_number TEXT NOT NULL,
            sender_name TEXT NOT NULL,
            message_type TEXT NOT NULL DEFAULT 'text',
            body TEXT NOT NULL DEFAULT '',
            media_url TEXT,
            caption TEXT,
            filename TEXT,
            size BIGINT,
            reply_to TEXT,
            status TEXT NOT NULL DEFAULT 'sent',
            delivered_at TIMESTAMPTZ,
            read_at TIMESTAMPTZ,
            deleted_for_everyone BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_for_everyone_at TIMESTAMPTZ,
            from_api BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_time ON messages (conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_participants ON messages (from_number, to_number);`,
		`CREATE TABLE IF NOT EXISTS message_deletions (
            message_id TEXT NOT NULL REFERENCES messages(message_id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            deleted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(message_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS blocked_users (
            blocked_by TEXT NOT NULL,
            blocked_user TEXT NOT NULL,
            blocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            reason TEXT NOT NULL DEFAULT 'User blocked',
            PRIMARY KEY(blocked_by, blocked_user)
        );`,
		`CREATE TABLE IF NOT EXISTS webhook_payloads (
            payload_id TEXT PRIMARY KEY,
            payload_type TEXT NOT NULL,
            processed BOOLEAN NOT NULL DEFAULT FALSE,
            processed_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
