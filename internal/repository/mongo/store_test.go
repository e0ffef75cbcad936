package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/ledger/ledgertest"
)

// Set LEDGER_TEST_MONGO_URI to a replica set to run these. Every subtest gets
// its own database, dropped on cleanup.
func TestStoreContract(t *testing.T) {
	uri := os.Getenv("LEDGER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("LEDGER_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect(context.Background()) })
	require.NoError(t, client.Ping(ctx, nil))

	ledgertest.RunStoreTests(t, func(t *testing.T) ledger.Store {
		name := "ledger_test_" + uuid.NewString()[:8]
		store := New(client, name)
		require.NoError(t, store.Migrate(ctx))
		t.Cleanup(func() { client.Database(name).Drop(context.Background()) })
		return store
	})
}
