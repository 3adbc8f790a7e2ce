package identity

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vishu3131/civisync/domain"
	syncerrors "github.com/vishu3131/civisync/errors"
	"github.com/vishu3131/civisync/log"
)

// authRecord is the provider-owned base authentication document.
type authRecord struct {
	UID           string     `bson:"_id"`
	Email         string     `bson:"email"`
	DisplayName   string     `bson:"display_name,omitempty"`
	PhotoURL      string     `bson:"photo_url,omitempty"`
	PhoneNumber   string     `bson:"phone_number,omitempty"`
	EmailVerified bool       `bson:"email_verified"`
	CreatedAt     *time.Time `bson:"created_at,omitempty"`
	LastSignInAt  *time.Time `bson:"last_sign_in_at,omitempty"`
}

// Fetcher reads the base authentication record and merges the provider's
// profile document on top of it.
type Fetcher struct {
	authUsers *mongo.Collection
	documents *mongo.Collection
	validator *documentValidator
	logger    log.Logger
}

// NewFetcher builds a Fetcher over the provider's document database.
func NewFetcher(db *mongo.Database, logger log.Logger) (*Fetcher, error) {
	validator, err := newDocumentValidator()
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		authUsers: db.Collection(AuthUsersCollection),
		documents: db.Collection(ProfileDocumentsCollection),
		validator: validator,
		logger:    logger,
	}, nil
}

// Fetch returns the merged identity snapshot for uid. The base
// authentication read is mandatory; a missing or unreadable profile
// document degrades to base fields only.
func (f *Fetcher) Fetch(ctx context.Context, uid string) (*domain.IdentitySnapshot, error) {
	var rec authRecord
	if err := f.authUsers.FindOne(ctx, bson.M{"_id": uid}).Decode(&rec); err != nil {
		return nil, &syncerrors.FetchError{UID: uid, Err: err}
	}

	snapshot := &domain.IdentitySnapshot{
		UID:           rec.UID,
		Email:         rec.Email,
		DisplayName:   rec.DisplayName,
		AvatarURL:     rec.PhotoURL,
		PhoneNumber:   rec.PhoneNumber,
		EmailVerified: rec.EmailVerified,
		CreatedAt:     rec.CreatedAt,
		LastSignInAt:  rec.LastSignInAt,
	}

	var doc bson.M
	err := f.documents.FindOne(ctx, bson.M{"_id": uid}).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		f.logger.Debug(ctx, "No profile document for user, using base fields only", map[string]any{"uid": uid})
		return snapshot, nil
	case err != nil:
		f.logger.Warn(ctx, "Profile document read failed, using base fields only", map[string]any{
			"uid":   uid,
			"error": err.Error(),
		})
		return snapshot, nil
	}

	normalized, err := f.validator.Validate(doc)
	if err != nil {
		f.logger.Warn(ctx, "Profile document failed validation, using base fields only", map[string]any{
			"uid":   uid,
			"error": err.Error(),
		})
		return snapshot, nil
	}

	mergeDocument(snapshot, normalized)
	return snapshot, nil
}
