package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
)

const sessionsCollection = "translation_sessions"

// SessionRepository implements repositories.SessionRepository using MongoDB
type SessionRepository struct {
	collection *mongo.Collection
	ttl        time.Duration
	logger     *zap.Logger
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new MongoDB session repository. Every
// write pushes the session expiry ttl into the future; a zero ttl uses
// entities.DefaultSessionTTL.
func NewSessionRepository(db *mongo.Database, ttl time.Duration, logger *zap.Logger) *SessionRepository {
	if ttl <= 0 {
		ttl = entities.DefaultSessionTTL
	}
	collection := db.Collection(sessionsCollection)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "client_id", Value: 1}}},
			{Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "expires_at", Value: 1},
			}},
		})
		if err != nil {
			logger.Error("Failed to create session indexes", zap.Error(err))
		} else {
			logger.Info("Session indexes created successfully")
		}
	}()

	return &SessionRepository{
		collection: collection,
		ttl:        ttl,
		logger:     logger,
	}
}

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.TranslationSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}
	session.ExpiresAt = session.LastActiveAt.Add(r.ttl)

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.Debug("Session created",
		zap.String("sessionID", session.ID),
		zap.String("targetLanguage", session.TargetLanguage))
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*entities.TranslationSession, error) {
	var session entities.TranslationSession
	err := r.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return &session, nil
}

// AppendUtterance implements repositories.SessionRepository
func (r *SessionRepository) AppendUtterance(ctx context.Context, sessionID string, record entities.UtteranceRecord) error {
	now := time.Now()
	inc := bson.M{"stats.detected": 1}
	switch record.Status {
	case entities.UtteranceStatusTranslated:
		inc["stats.translated"] = 1
	case entities.UtteranceStatusFailed:
		inc["stats.failed"] = 1
	}

	update := bson.M{
		"$push": bson.M{"utterances": record},
		"$inc":  inc,
		"$set": bson.M{
			"last_active_at": now,
			"expires_at":     now.Add(r.ttl),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, update)
	if err != nil {
		return fmt.Errorf("failed to append utterance to session %s: %w", sessionID, err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrSessionNotFound
	}
	return nil
}

// Close implements repositories.SessionRepository
func (r *SessionRepository) Close(ctx context.Context, sessionID string) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":         entities.SessionStatusClosed,
			"ended_at":       now,
			"last_active_at": now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, update)
	if err != nil {
		return fmt.Errorf("failed to close session %s: %w", sessionID, err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrSessionNotFound
	}
	return nil
}

// ListActive implements repositories.SessionRepository
func (r *SessionRepository) ListActive(ctx context.Context) ([]*entities.TranslationSession, error) {
	filter := bson.M{
		"status":     entities.SessionStatusActive,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"utterances": 0})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*entities.TranslationSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// ExpireSessions implements repositories.SessionRepository
func (r *SessionRepository) ExpireSessions(ctx context.Context) (int64, error) {
	filter := bson.M{
		"status":     entities.SessionStatusActive,
		"expires_at": bson.M{"$lt": time.Now()},
	}
	update := bson.M{
		"$set": bson.M{"status": entities.SessionStatusExpired},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	return result.ModifiedCount, nil
}
