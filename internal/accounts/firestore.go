package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Liquid-Surf/fedcm-demo/internal/crypto"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore persists session cookies and WebID links in Firestore.
//
// Read operations return errors: account resolution must fail loudly rather
// than mint tokens against stale identity. Session writes also fail loudly,
// since a cookie the store forgot would break the replay pipeline mid-flight.
type FirestoreStore struct {
	client             *firestore.Client
	sessionsCollection string
	linksCollection    string
	logger             *slog.Logger
}

var (
	_ CookieStore = (*FirestoreStore)(nil)
	_ WebIDStore  = (*FirestoreStore)(nil)
)

type sessionDoc struct {
	AccountID string    `firestore:"account_id"`
	CreatedAt time.Time `firestore:"created_at"`
}

// NewFirestoreStore connects to the given project. collectionPrefix keeps the
// bridge's collections separate from whatever else lives in the project.
func NewFirestoreStore(ctx context.Context, projectID, collectionPrefix string, logger *slog.Logger) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{
		client:             client,
		sessionsCollection: collectionPrefix + "_sessions",
		linksCollection:    collectionPrefix + "_webid_links",
		logger:             logger.With("component", "firestore"),
	}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// Get implements CookieStore.
func (s *FirestoreStore) Get(ctx context.Context, cookie string) (string, error) {
	doc, err := s.client.Collection(s.sessionsCollection).Doc(cookie).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", ErrUnknownCookie
		}
		return "", fmt.Errorf("failed to get session: %w", err)
	}

	var session sessionDoc
	if err := doc.DataTo(&session); err != nil {
		return "", fmt.Errorf("failed to parse session doc: %w", err)
	}
	return session.AccountID, nil
}

// Generate implements CookieStore.
func (s *FirestoreStore) Generate(ctx context.Context, accountID string) (string, error) {
	value, err := crypto.GenerateSecureToken()
	if err != nil {
		return "", err
	}

	_, err = s.client.Collection(s.sessionsCollection).Doc(value).Set(ctx, sessionDoc{
		AccountID: accountID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Debug("issued session cookie", "account_id", accountID)
	return value, nil
}

// FindLinks implements WebIDStore.
func (s *FirestoreStore) FindLinks(ctx context.Context, accountID string) ([]Link, error) {
	iter := s.client.Collection(s.linksCollection).
		Where("account_id", "==", accountID).
		Documents(ctx)
	defer iter.Stop()

	var links []Link
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate webid links: %w", err)
		}

		var link Link
		if err := doc.DataTo(&link); err != nil {
			return nil, fmt.Errorf("failed to parse webid link doc: %w", err)
		}
		links = append(links, link)
	}
	return links, nil
}

// AddLink records a WebID link for an account. The host registration flow
// owns links; this exists for provisioning tooling.
func (s *FirestoreStore) AddLink(ctx context.Context, link Link) error {
	_, _, err := s.client.Collection(s.linksCollection).Add(ctx, link)
	if err != nil {
		return fmt.Errorf("failed to add webid link: %w", err)
	}
	return nil
}
