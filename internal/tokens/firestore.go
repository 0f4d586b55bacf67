package tokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/eternisai/push-bridge/internal/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const pushTokensCollection = "push_tokens"

// FirestoreStore keeps tokens at /push_tokens/{sha256(token)} with structure:
//
//	{token: "fcm_token_...", platform: "web", createdAt: timestamp, lastUpdatedAt: timestamp}
type FirestoreStore struct {
	client *firestore.Client
	logger *logger.Logger
	now    func() time.Time
}

// NewFirestoreStore wraps client.
func NewFirestoreStore(client *firestore.Client, logger *logger.Logger) *FirestoreStore {
	return &FirestoreStore{
		client: client,
		logger: logger.WithComponent("token-store"),
		now:    time.Now,
	}
}

// docID derives a stable document id. Raw tokens are long and may contain
// characters Firestore reserves.
func docID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Upsert implements Store.
func (s *FirestoreStore) Upsert(ctx context.Context, reg Registration) (Receipt, error) {
	if err := reg.Validate(); err != nil {
		return Receipt{}, err
	}

	log := s.logger.WithContext(ctx)
	id := docID(reg.Token)
	ref := s.client.Collection(pushTokensCollection).Doc(id)
	now := s.now().UTC()

	created := false
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
			created = true
			return tx.Create(ref, map[string]interface{}{
				"token":         reg.Token,
				"platform":      reg.Platform,
				"createdAt":     now,
				"lastUpdatedAt": now,
			})
		}
		created = false
		return tx.Set(ref, map[string]interface{}{
			"platform":      reg.Platform,
			"lastUpdatedAt": now,
		}, firestore.MergeAll)
	})
	if err != nil {
		log.Error("failed to upsert push token",
			slog.String("path", fmt.Sprintf("%s/%s", pushTokensCollection, id)),
			slog.String("error", err.Error()))
		return Receipt{}, fmt.Errorf("failed to upsert token: %w", err)
	}

	log.Info("push token stored",
		slog.String("path", fmt.Sprintf("%s/%s", pushTokensCollection, id)),
		slog.String("platform", reg.Platform),
		slog.Bool("created", created))

	return Receipt{}, nil
}
