package domain

// DefaultNotificationTime is used when a preference has no delivery time yet.
const DefaultNotificationTime = "15:00"

// UserPreference is the per-chat subscription record.
// Private chats are keyed by (UserID, ChatID); group chats also carry
// GroupChatID so any admin's edits land on the same row.
type UserPreference struct {
	UserID           int64
	ChatID           int64
	GroupID          string // id in the school's numbering, cg<GroupID>.htm
	GroupName        string // human group code, e.g. "1521-2"
	Notifications    bool
	NotificationTime string // HH:MM, local time
	IsGroupChat      bool
	GroupChatID      int64 // 0 for private chats
}

// DeliveryTime returns the configured delivery time or the default one.
func (p *UserPreference) DeliveryTime() string {
	if p.NotificationTime == "" {
		return DefaultNotificationTime
	}
	return p.NotificationTime
}
