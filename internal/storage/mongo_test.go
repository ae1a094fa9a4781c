package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestPingOrDisconnect_ReleasesUnreachableClient(t *testing.T) {
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200*time.Millisecond))
	require.NoError(t, err)

	err = pingOrDisconnect(ctx, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping MongoDB")

	// already disconnected
	assert.ErrorIs(t, client.Disconnect(ctx), mongo.ErrClientDisconnected)
}
