package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

// SQLiteRepo implements Repo on an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the database at path, applies PRAGMAs and
// runs the embedded migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// GetPreference returns the preference of (userID, chatID), or the group
// chat's shared row when chatID is a group chat.
func (r *SQLiteRepo) GetPreference(ctx context.Context, userID, chatID int64) (*domain.UserPreference, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+preferenceColumns+`
		FROM user_preferences
		WHERE (user_id = ? AND chat_id = ?)
		   OR (is_group_chat = 1 AND group_chat_id = ?)
		ORDER BY is_group_chat DESC, id ASC
		LIMIT 1`,
		userID, chatID, chatID,
	)
	p, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPreference inserts the preference or updates the (user_id, chat_id) row.
func (r *SQLiteRepo) UpsertPreference(ctx context.Context, p *domain.UserPreference) error {
	if p == nil {
		return errors.New("nil preference")
	}

	now := time.Now().UTC().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (
			user_id, chat_id, group_id, group_name, notifications,
			notification_time, is_group_chat, group_chat_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, chat_id) DO UPDATE SET
			group_id          = excluded.group_id,
			group_name        = excluded.group_name,
			notifications     = excluded.notifications,
			notification_time = excluded.notification_time,
			is_group_chat     = excluded.is_group_chat,
			group_chat_id     = excluded.group_chat_id,
			updated_at        = excluded.updated_at`,
		p.UserID, p.ChatID, p.GroupID, p.GroupName, boolToInt(p.Notifications),
		p.DeliveryTime(), boolToInt(p.IsGroupChat), toNullID(p.GroupChatID), now, now,
	)
	return err
}

// ListNotifiable returns preferences with notifications enabled and a group chosen.
func (r *SQLiteRepo) ListNotifiable(ctx context.Context) ([]domain.UserPreference, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+preferenceColumns+`
		FROM user_preferences
		WHERE notifications = 1
		  AND group_id <> ''
		ORDER BY chat_id ASC, user_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.UserPreference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// SetNotifications toggles notifications for every row of chatID.
func (r *SQLiteRepo) SetNotifications(ctx context.Context, chatID int64, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_preferences
		SET notifications = ?, updated_at = ?
		WHERE chat_id = ?`,
		boolToInt(enabled), time.Now().UTC().Unix(), chatID,
	)
	return err
}

// BotMessages returns the ids of the bot's tracked messages in chatID, oldest first.
func (r *SQLiteRepo) BotMessages(ctx context.Context, chatID int64) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id
		FROM bot_messages
		WHERE chat_id = ?
		ORDER BY sent_at ASC, message_id ASC`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReplaceBotMessages swaps the tracked messages of chatID for messageIDs.
func (r *SQLiteRepo) ReplaceBotMessages(ctx context.Context, chatID int64, messageIDs []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bot_messages WHERE chat_id = ?`, chatID); err != nil {
		_ = tx.Rollback()
		return err
	}

	now := time.Now().UTC().Unix()
	for _, id := range messageIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO bot_messages (chat_id, message_id, sent_at)
			VALUES (?, ?, ?)`,
			chatID, id, now,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
