package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social_chat_sync/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository persistence collaborator consumed by the sync engine
type MessageRepository interface {
	// CreateMessage 寫入一筆訊息，由後端指派 canonical id 與 created_at
	CreateMessage(ctx context.Context, msg domain.NewMessage) (domain.Message, error)
	// UpdateMessage 更新 reactions / is_read
	UpdateMessage(ctx context.Context, id string, patch domain.MessagePatch) error
	// DeleteMessage sender only, enforced by the backend
	DeleteMessage(ctx context.Context, id string) error
	// ListMessages conversation history ordered by created_at ascending
	ListMessages(ctx context.Context, key domain.ConversationKey, actorID string) ([]domain.Message, error)
	// MarkRead batched read flag
	MarkRead(ctx context.Context, ids []string) error
}

// Migrator optional schema / index bootstrap
type Migrator interface {
	Migrate(ctx context.Context) error
}

// mongoMessage document layout in the messages collection
type mongoMessage struct {
	ID         string              `bson:"_id"`
	CreatedAt  time.Time           `bson:"created_at"`
	SenderID   string              `bson:"sender_id"`
	ReceiverID *string             `bson:"receiver_id"`
	GroupID    *string             `bson:"group_id"`
	Content    string              `bson:"content"`
	IsRead     bool                `bson:"is_read"`
	ImageURL   *string             `bson:"image_url"`
	Reactions  map[string][]string `bson:"reactions"`
}

func (d mongoMessage) toDomain() (domain.Message, error) {
	rec := domain.WireRecord{
		ID:         d.ID,
		CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339Nano),
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		GroupID:    d.GroupID,
		Content:    d.Content,
		IsRead:     d.IsRead,
		ImageURL:   d.ImageURL,
		Reactions:  d.Reactions,
	}
	return rec.ToMessage()
}

type mongoMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository backed by mongo
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepository{
		coll: db.Collection("messages"),
	}
}

// Migrate ensures the conversation listing indexes
func (r *mongoMessageRepository) Migrate(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	return err
}

func (r *mongoMessageRepository) CreateMessage(ctx context.Context, msg domain.NewMessage) (domain.Message, error) {
	doc := mongoMessage{
		ID:        primitive.NewObjectID().Hex(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		Reactions: map[string][]string{},
	}
	if msg.Key.IsGroup {
		doc.GroupID = &msg.Key.ID
	} else {
		doc.ReceiverID = &msg.Key.ID
	}
	if msg.MediaRef != "" {
		doc.ImageURL = &msg.MediaRef
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return domain.Message{}, err
	}
	return doc.toDomain()
}

func (r *mongoMessageRepository) UpdateMessage(ctx context.Context, id string, patch domain.MessagePatch) error {
	set := bson.M{}
	if patch.IsRead != nil {
		set["is_read"] = *patch.IsRead
	}
	if patch.Reactions != nil {
		set["reactions"] = map[string][]string(patch.Reactions)
	}
	if len(set) == 0 {
		return nil
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *mongoMessageRepository) DeleteMessage(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListMessages 依 created_at 升序取得對話紀錄
func (r *mongoMessageRepository) ListMessages(ctx context.Context, key domain.ConversationKey, actorID string) ([]domain.Message, error) {
	var filter bson.M
	if key.IsGroup {
		filter = bson.M{"group_id": key.ID}
	} else {
		filter = bson.M{
			"group_id": nil,
			"$or": bson.A{
				bson.M{"sender_id": actorID, "receiver_id": key.ID},
				bson.M{"sender_id": key.ID, "receiver_id": actorID},
			},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []mongoMessage
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}

	msgs := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		m, err := d.toDomain()
		if err != nil {
			return nil, errors.Join(fmt.Errorf("message %s", d.ID), err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (r *mongoMessageRepository) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	return err
}
