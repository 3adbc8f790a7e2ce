package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vishu3131/civisync/domain"
	"github.com/vishu3131/civisync/log"
)

const sessionKeyPrefix = "auth:session:"

// Provider implements domain.IdentityProvider on top of the identity
// provider's document database (auth records + profile documents) and its
// Redis-published auth-state stream.
type Provider struct {
	fetcher   *Fetcher
	documents *mongo.Collection
	rdb       *redis.Client
	channel   string
	logger    log.Logger
}

// NewProvider creates the identity provider adapter. channel is the Redis
// pub/sub channel carrying auth-state events.
func NewProvider(db *mongo.Database, rdb *redis.Client, channel string, logger log.Logger) (*Provider, error) {
	fetcher, err := NewFetcher(db, logger)
	if err != nil {
		return nil, err
	}
	return &Provider{
		fetcher:   fetcher,
		documents: db.Collection(ProfileDocumentsCollection),
		rdb:       rdb,
		channel:   channel,
		logger:    logger,
	}, nil
}

// Fetch implements domain.IdentityProvider by delegating to the Fetcher.
func (p *Provider) Fetch(ctx context.Context, uid string) (*domain.IdentitySnapshot, error) {
	return p.fetcher.Fetch(ctx, uid)
}

// SubscribeAuthState subscribes to the auth-state pub/sub channel. Events
// that fail to decode are logged and dropped; the stream keeps going.
func (p *Provider) SubscribeAuthState(ctx context.Context) (<-chan domain.AuthEvent, func(), error) {
	pubsub := p.rdb.Subscribe(ctx, p.channel)
	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", p.channel, err)
	}

	out := make(chan domain.AuthEvent)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev domain.AuthEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				p.logger.Warn(ctx, "Dropping undecodable auth event", map[string]any{
					"channel": p.channel,
					"error":   err.Error(),
				})
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}

// WatchProfile opens a change stream filtered to one user's profile
// document and notifies on every change until cancelled.
func (p *Provider) WatchProfile(ctx context.Context, uid string) (<-chan struct{}, func(), error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: uid}}}},
	}
	watchCtx, cancelWatch := context.WithCancel(ctx)
	stream, err := p.documents.Watch(watchCtx, pipeline, options.ChangeStream())
	if err != nil {
		cancelWatch()
		return nil, nil, fmt.Errorf("watching profile document for %s: %w", uid, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())
		for stream.Next(watchCtx) {
			// Coalesce: a pending notification is enough.
			select {
			case out <- struct{}{}:
			default:
			}
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			p.logger.Warn(ctx, "Profile document change stream ended", map[string]any{
				"uid":   uid,
				"error": err.Error(),
			})
		}
	}()

	return out, cancelWatch, nil
}

// ListUIDs enumerates the ids of every profile document.
func (p *Provider) ListUIDs(ctx context.Context) ([]string, error) {
	cursor, err := p.documents.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("listing profile documents: %w", err)
	}
	defer cursor.Close(ctx)

	var uids []string
	for cursor.Next(ctx) {
		var doc struct {
			UID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		uids = append(uids, doc.UID)
	}
	return uids, cursor.Err()
}

// IsAuthenticated reports whether the provider holds an active session for
// uid.
func (p *Provider) IsAuthenticated(ctx context.Context, uid string) (bool, error) {
	n, err := p.rdb.Exists(ctx, sessionKeyPrefix+uid).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
