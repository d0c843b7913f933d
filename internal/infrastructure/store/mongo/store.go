// Package mongo implements the CredentialStore contract over MongoDB, for
// deployments that already run Mongo and do not want a Redis dependency.
//
// One document per scope in the "credentials" collection, replaced wholesale
// on save so a reader never observes a partial write.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
)

const collectionName = "credentials"

type credentialDoc struct {
	Scope        string      `bson:"_id"`
	AccessToken  string      `bson:"access_token"`
	RefreshToken string      `bson:"refresh_token"`
	User         domain.User `bson:"user"`
}

// Store persists one scope's session as a single document.
type Store struct {
	collection *mongo.Collection
	scope      string
}

// NewStore binds a store to its scope.
func NewStore(db *mongo.Database, scope string) *Store {
	return &Store{collection: db.Collection(collectionName), scope: scope}
}

// Factory returns a ports.StoreFactory over the shared database handle.
func Factory(db *mongo.Database) ports.StoreFactory {
	return func(scope string) ports.CredentialStore {
		return NewStore(db, scope)
	}
}

func (s *Store) Save(ctx context.Context, session domain.Session) error {
	doc := credentialDoc{
		Scope:        s.scope,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": s.scope}, doc, opts); err != nil {
		return fmt.Errorf("credential store: save: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*domain.Session, error) {
	var doc credentialDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": s.scope}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		// Undecodable documents count as corruption: heal and report absence.
		if healErr := s.Clear(ctx); healErr != nil {
			return nil, healErr
		}
		return nil, nil
	}

	sess := domain.Session{
		AccessToken:  doc.AccessToken,
		RefreshToken: doc.RefreshToken,
		User:         doc.User,
	}
	if !sess.Complete() {
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": s.scope}); err != nil {
		return fmt.Errorf("credential store: clear: %w", err)
	}
	return nil
}
