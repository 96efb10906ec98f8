package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

func openSQLite(t *testing.T) Repo {
	t.Helper()
	r, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func openMongo(t *testing.T) Repo {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	name := fmt.Sprintf("schedule_bot_test_%d", time.Now().UnixNano())
	r, err := OpenMongo(context.Background(), uri, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.client.Database(name).Drop(context.Background())
		_ = r.Close()
	})
	return r
}

func forEachRepo(t *testing.T, fn func(t *testing.T, r Repo)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQLite(t)) })
	t.Run("mongo", func(t *testing.T) { fn(t, openMongo(t)) })
}

func TestRepo_PreferenceRoundTrip(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repo) {
		ctx := context.Background()

		_, err := r.GetPreference(ctx, 1, 100)
		require.True(t, errors.Is(err, ErrNotFound))

		p := &domain.UserPreference{UserID: 1, ChatID: 100, GroupID: "42", GroupName: "1521-2"}
		require.NoError(t, r.UpsertPreference(ctx, p))

		got, err := r.GetPreference(ctx, 1, 100)
		require.NoError(t, err)
		require.Equal(t, "42", got.GroupID)
		require.Equal(t, "1521-2", got.GroupName)
		require.False(t, got.Notifications)
		require.Equal(t, domain.DefaultNotificationTime, got.NotificationTime)

		got.Notifications = true
		got.NotificationTime = "09:30"
		require.NoError(t, r.UpsertPreference(ctx, got))

		again, err := r.GetPreference(ctx, 1, 100)
		require.NoError(t, err)
		require.True(t, again.Notifications)
		require.Equal(t, "09:30", again.NotificationTime)
	})
}

func TestRepo_GroupChatIsSharedBetweenAdmins(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repo) {
		ctx := context.Background()
		const groupChat = int64(-1001)

		require.NoError(t, r.UpsertPreference(ctx, &domain.UserPreference{
			UserID: 7, ChatID: groupChat, GroupID: "42",
			IsGroupChat: true, GroupChatID: groupChat,
		}))

		// Another admin of the same chat sees the existing row.
		got, err := r.GetPreference(ctx, 8, groupChat)
		require.NoError(t, err)
		require.Equal(t, int64(7), got.UserID)
		require.True(t, got.IsGroupChat)
		require.Equal(t, groupChat, got.GroupChatID)
	})
}

func TestRepo_ListNotifiableAndDisable(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repo) {
		ctx := context.Background()

		prefs := []domain.UserPreference{
			{UserID: 1, ChatID: 1, GroupID: "42", Notifications: true, NotificationTime: "09:00"},
			{UserID: 2, ChatID: 2, GroupID: "43", Notifications: false},
			{UserID: 3, ChatID: 3, GroupID: "", Notifications: true},
			{UserID: 4, ChatID: 4, GroupID: "44", Notifications: true},
		}
		for i := range prefs {
			require.NoError(t, r.UpsertPreference(ctx, &prefs[i]))
		}

		list, err := r.ListNotifiable(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, int64(1), list[0].ChatID)
		require.Equal(t, "09:00", list[0].NotificationTime)
		require.Equal(t, int64(4), list[1].ChatID)

		require.NoError(t, r.SetNotifications(ctx, 4, false))
		list, err = r.ListNotifiable(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, int64(1), list[0].ChatID)
	})
}

func TestRepo_BotMessages(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repo) {
		ctx := context.Background()

		ids, err := r.BotMessages(ctx, 100)
		require.NoError(t, err)
		require.Empty(t, ids)

		require.NoError(t, r.ReplaceBotMessages(ctx, 100, []int{10, 11}))
		ids, err = r.BotMessages(ctx, 100)
		require.NoError(t, err)
		require.ElementsMatch(t, []int{10, 11}, ids)

		require.NoError(t, r.ReplaceBotMessages(ctx, 100, []int{12}))
		ids, err = r.BotMessages(ctx, 100)
		require.NoError(t, err)
		require.Equal(t, []int{12}, ids)

		require.NoError(t, r.ReplaceBotMessages(ctx, 100, nil))
		ids, err = r.BotMessages(ctx, 100)
		require.NoError(t, err)
		require.Empty(t, ids)
	})
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	ctx := context.Background()

	r, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, r.UpsertPreference(ctx, &domain.UserPreference{UserID: 1, ChatID: 1, GroupID: "42"}))
	require.NoError(t, r.Close())

	r, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.GetPreference(ctx, 1, 1)
	require.NoError(t, err)
}
