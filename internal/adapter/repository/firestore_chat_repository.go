package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bridgeit/internal/domain/entity"
	"bridgeit/internal/domain/repository"
	"bridgeit/pkg/errors"
	"bridgeit/pkg/logger"
	"bridgeit/pkg/stream"
)

const messagesCollection = "messages"

type firestoreChatRepository struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreChatRepository(client *firestore.Client, collection string) repository.ConversationRepository {
	if collection == "" {
		collection = "chats"
	}
	return &firestoreChatRepository{
		client:     client,
		collection: collection,
	}
}

func (r *firestoreChatRepository) chats() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *firestoreChatRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.chats().Doc(conversationID).Collection(messagesCollection)
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, err
	}
	// Documents written by older clients carry no id field.
	conv.ID = doc.Ref.ID
	return &conv, nil
}

func decodeMessage(conversationID string, doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, err
	}
	msg.ID = doc.Ref.ID
	msg.ConversationID = conversationID
	return &msg, nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.chats().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", nil)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	conv, err := decodeConversation(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	return conv, nil
}

func (r *firestoreChatRepository) FindByParticipants(ctx context.Context, participants []string) (*entity.Conversation, error) {
	iter := r.chats().Where("participants", "==", participants).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Chat for participants", nil)
	}
	if err != nil {
		return nil, errors.Internal("Failed to query chat by participants", err)
	}

	conv, err := decodeConversation(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	return conv, nil
}

func (r *firestoreChatRepository) CreateIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	if conv.ID == "" {
		return nil, false, errors.BadRequest("Chat id is required", nil)
	}

	ref := r.chats().Doc(conv.ID)
	_, err := ref.Create(ctx, conv)
	if err == nil {
		stored, getErr := r.GetByID(ctx, conv.ID)
		if getErr != nil {
			// The write succeeded; hand back what we sent with a local timestamp.
			logger.Warn("CreateIfAbsent: chat %s created but re-read failed: %v", conv.ID, getErr)
			cp := conv.Clone()
			cp.LastMessageAt = time.Now()
			cp.CreatedAt = cp.LastMessageAt
			return cp, true, nil
		}
		return stored, true, nil
	}

	if status.Code(err) != codes.AlreadyExists {
		return nil, false, errors.Internal("Failed to create chat", err)
	}

	stored, err := r.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (r *firestoreChatRepository) byParticipant(userID string) firestore.Query {
	return r.chats().Where("participants", "array-contains", userID).OrderBy("lastMessageAt", firestore.Desc)
}

func (r *firestoreChatRepository) decodeConversations(userID string, docs []*firestore.DocumentSnapshot) []*entity.Conversation {
	convs := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		conv, err := decodeConversation(doc)
		if err != nil {
			logger.Error("Error parsing chat %s for user %s: %v", doc.Ref.ID, userID, err)
			continue // Skip bad data instead of failing
		}
		convs = append(convs, conv)
	}
	entity.SortConversations(convs)
	return convs
}

func (r *firestoreChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	docs, err := r.byParticipant(userID).Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, errors.Internal("Failed to fetch chats", err)
	}
	return r.decodeConversations(userID, docs), nil
}

func (r *firestoreChatRepository) WatchByParticipant(ctx context.Context, userID string) (*stream.Stream[[]*entity.Conversation], error) {
	query := r.byParticipant(userID)
	return stream.Start(ctx, func(ctx context.Context, emit func([]*entity.Conversation) bool) error {
		snaps := query.Snapshots(ctx)
		defer snaps.Stop()

		for {
			snap, err := snaps.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return nil
				}
				logger.Error("WatchByParticipant: listener for user %s failed: %v", userID, err)
				return errors.Internal("Chat list subscription failed", err)
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				return errors.Internal("Failed to read chat list snapshot", err)
			}
			if !emit(r.decodeConversations(userID, docs)) {
				return nil
			}
		}
	}), nil
}

func (r *firestoreChatRepository) MarkRead(ctx context.Context, conversationID, userID string, seenAt time.Time) error {
	ref := r.chats().Doc(conversationID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		conv, err := decodeConversation(doc)
		if err != nil {
			return err
		}
		if conv.ReadBy(userID) || !conv.LastMessageAt.Equal(seenAt) {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "lastMessageReadBy", Value: firestore.ArrayUnion(userID)},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", nil)
		}
		return errors.Internal("Failed to mark chat as read", err)
	}
	return nil
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, msg *entity.Message) error {
	convRef := r.chats().Doc(msg.ConversationID)
	msgRef := convRef.Collection(messagesCollection).NewDoc()
	msg.ID = msgRef.ID
	msg.Timestamp = time.Time{}

	// Message and projection commit together, so lastMessage never refers to
	// a message that is not stored.
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			return err
		}
		if !doc.Exists() {
			return status.Error(codes.NotFound, "chat not found")
		}

		if err := tx.Create(msgRef, msg); err != nil {
			return err
		}
		return tx.Update(convRef, []firestore.Update{
			{Path: "lastMessage", Value: msg.Text},
			{Path: "lastMessageAt", Value: firestore.ServerTimestamp},
			{Path: "lastMessageSender", Value: msg.SenderID},
			{Path: "lastMessageReadBy", Value: []string{msg.SenderID}},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("Failed to send message", err)
	}

	doc, err := msgRef.Get(ctx)
	if err != nil {
		// Stored, but the server timestamp is not known here yet.
		logger.Warn("AppendMessage: message %s stored but re-read failed: %v", msg.ID, err)
		return nil
	}
	if stored, err := decodeMessage(msg.ConversationID, doc); err == nil {
		msg.Timestamp = stored.Timestamp
	}
	return nil
}

func (r *firestoreChatRepository) messagesQuery(conversationID string) firestore.Query {
	return r.messages(conversationID).OrderBy("timestamp", firestore.Asc)
}

func (r *firestoreChatRepository) decodeMessages(conversationID string, docs []*firestore.DocumentSnapshot) []*entity.Message {
	msgs := make([]*entity.Message, 0, len(docs))
	for _, doc := range docs {
		msg, err := decodeMessage(conversationID, doc)
		if err != nil {
			logger.Error("Error parsing message %s in chat %s: %v", doc.Ref.ID, conversationID, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	entity.SortMessages(msgs)
	return msgs
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	iter := r.messagesQuery(conversationID).Documents(ctx)
	defer iter.Stop()

	var docs []*firestore.DocumentSnapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for chat %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}
		docs = append(docs, doc)
	}
	return r.decodeMessages(conversationID, docs), nil
}

func (r *firestoreChatRepository) WatchMessages(ctx context.Context, conversationID string) (*stream.Stream[[]*entity.Message], error) {
	query := r.messagesQuery(conversationID)
	return stream.Start(ctx, func(ctx context.Context, emit func([]*entity.Message) bool) error {
		snaps := query.Snapshots(ctx)
		defer snaps.Stop()

		for {
			snap, err := snaps.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return nil
				}
				logger.Error("WatchMessages: listener for chat %s failed: %v", conversationID, err)
				return errors.Internal("Message subscription failed", err)
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				return errors.Internal("Failed to read message snapshot", err)
			}
			if !emit(r.decodeMessages(conversationID, docs)) {
				return nil
			}
		}
	}), nil
}
