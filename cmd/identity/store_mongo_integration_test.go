package identity

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Opt-in: requires GUDAGE_TEST_MONGO_URI.

func TestMongoStore_Backend(t *testing.T) {
	client := mustOpenTestMongo(t)

	runBackendSuite(t, func(t *testing.T) Backend {
		db := client.Database("gudage_it_" + strings.ToLower(mustNewULIDLike(t)))
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = db.Drop(ctx)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := NewMongoStore(ctx, db, WithCollection("users"))
		require.NoError(t, err)
		return s
	})
}

func mustOpenTestMongo(t *testing.T) *mongo.Client {
	t.Helper()

	uri := strings.TrimSpace(os.Getenv("GUDAGE_TEST_MONGO_URI"))
	if uri == "" {
		t.Skip("integration test skipped: GUDAGE_TEST_MONGO_URI is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	})

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: MongoDB unreachable: %v", err)
		}
		t.Fatalf("ping mongo: %v", err)
	}
	return client
}
