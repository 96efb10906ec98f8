package store

import (
	"database/sql"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const preferenceColumns = `user_id, chat_id, group_id, group_name, notifications,
	notification_time, is_group_chat, group_chat_id`

func scanPreference(s rowScanner) (domain.UserPreference, error) {
	var (
		p             domain.UserPreference
		notifications int
		isGroup       int
		groupChatID   sql.NullInt64
	)
	if err := s.Scan(
		&p.UserID, &p.ChatID, &p.GroupID, &p.GroupName, &notifications,
		&p.NotificationTime, &isGroup, &groupChatID,
	); err != nil {
		return domain.UserPreference{}, err
	}
	p.Notifications = notifications != 0
	p.IsGroupChat = isGroup != 0
	p.GroupChatID = fromNullID(groupChatID)
	return p, nil
}

func toNullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func fromNullID(n sql.NullInt64) int64 {
	if !n.Valid {
		return 0
	}
	return n.Int64
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
