package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

const (
	preferencesCollection = "userpreferences"
	historyCollection     = "messageHistory"

	mongoTimeout = 10 * time.Second
)

var (
	_ Repo = (*SQLiteRepo)(nil)
	_ Repo = (*MongoRepo)(nil)
)

type preferenceDoc struct {
	UserID           int64     `bson:"userId"`
	ChatID           int64     `bson:"chatId"`
	GroupID          string    `bson:"groupId"`
	GroupName        string    `bson:"groupName"`
	Notifications    bool      `bson:"notifications"`
	NotificationTime string    `bson:"notificationTime"`
	IsGroupChat      bool      `bson:"isGroupChat"`
	GroupChatID      int64     `bson:"groupChatId,omitempty"`
	CreatedAt        time.Time `bson:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt"`
}

func (d preferenceDoc) toDomain() domain.UserPreference {
	return domain.UserPreference{
		UserID:           d.UserID,
		ChatID:           d.ChatID,
		GroupID:          d.GroupID,
		GroupName:        d.GroupName,
		Notifications:    d.Notifications,
		NotificationTime: d.NotificationTime,
		IsGroupChat:      d.IsGroupChat,
		GroupChatID:      d.GroupChatID,
	}
}

type historyDoc struct {
	ChatID     int64 `bson:"chatId"`
	MessageIDs []int `bson:"messageIds"`
}

// MongoRepo implements Repo on MongoDB.
type MongoRepo struct {
	client      *mongo.Client
	preferences *mongo.Collection
	history     *mongo.Collection
}

// OpenMongo connects to uri, verifies the connection and ensures indexes.
func OpenMongo(ctx context.Context, uri, database string) (*MongoRepo, error) {
	cctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := client.Database(database)
	r := &MongoRepo{
		client:      client,
		preferences: db.Collection(preferencesCollection),
		history:     db.Collection(historyCollection),
	}
	if err := r.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("indexes: %w", err)
	}
	return r, nil
}

func (r *MongoRepo) ensureIndexes(ctx context.Context) error {
	_, err := r.preferences.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "chatId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "groupChatId", Value: 1}}},
		{Keys: bson.D{{Key: "notifications", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = r.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chatId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Close disconnects the client.
func (r *MongoRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// GetPreference matches {userId, chatId} or a group chat's {groupChatId}.
func (r *MongoRepo) GetPreference(ctx context.Context, userID, chatID int64) (*domain.UserPreference, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"userId": userID, "chatId": chatID},
		bson.M{"isGroupChat": true, "groupChatId": chatID},
	}}
	opts := options.FindOne().SetSort(bson.D{{Key: "isGroupChat", Value: -1}, {Key: "createdAt", Value: 1}})

	var doc preferenceDoc
	err := r.preferences.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := doc.toDomain()
	return &p, nil
}

// UpsertPreference writes p keyed by {userId, chatId}.
func (r *MongoRepo) UpsertPreference(ctx context.Context, p *domain.UserPreference) error {
	if p == nil {
		return errors.New("nil preference")
	}
	now := time.Now().UTC()
	set := bson.M{
		"groupId":          p.GroupID,
		"groupName":        p.GroupName,
		"notifications":    p.Notifications,
		"notificationTime": p.DeliveryTime(),
		"isGroupChat":      p.IsGroupChat,
		"updatedAt":        now,
	}
	if p.GroupChatID != 0 {
		set["groupChatId"] = p.GroupChatID
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := r.preferences.UpdateOne(ctx,
		bson.M{"userId": p.UserID, "chatId": p.ChatID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

// ListNotifiable returns preferences with notifications on and a group chosen.
func (r *MongoRepo) ListNotifiable(ctx context.Context) ([]domain.UserPreference, error) {
	filter := bson.M{"notifications": true, "groupId": bson.M{"$ne": ""}}
	cursor, err := r.preferences.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "chatId", Value: 1}, {Key: "userId", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []preferenceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	res := make([]domain.UserPreference, 0, len(docs))
	for _, d := range docs {
		res = append(res, d.toDomain())
	}
	return res, nil
}

// SetNotifications toggles notifications on every document of chatID.
func (r *MongoRepo) SetNotifications(ctx context.Context, chatID int64, enabled bool) error {
	_, err := r.preferences.UpdateMany(ctx,
		bson.M{"chatId": chatID},
		bson.M{"$set": bson.M{"notifications": enabled, "updatedAt": time.Now().UTC()}},
	)
	return err
}

// BotMessages returns the tracked message ids of chatID.
func (r *MongoRepo) BotMessages(ctx context.Context, chatID int64) ([]int, error) {
	var doc historyDoc
	err := r.history.FindOne(ctx, bson.M{"chatId": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.MessageIDs, nil
}

// ReplaceBotMessages overwrites the tracked message ids of chatID.
func (r *MongoRepo) ReplaceBotMessages(ctx context.Context, chatID int64, messageIDs []int) error {
	if messageIDs == nil {
		messageIDs = []int{}
	}
	_, err := r.history.UpdateOne(ctx,
		bson.M{"chatId": chatID},
		bson.M{"$set": bson.M{"messageIds": messageIDs}},
		options.Update().SetUpsert(true),
	)
	return err
}
