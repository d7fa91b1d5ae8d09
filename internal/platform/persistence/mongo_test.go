package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoDB_Database(t *testing.T) {
	// mongo.Connect does not dial until the first operation
	dummyClient, err := mongo.Connect(context.TODO(), options.Client().ApplyURI("mongodb://localhost:27017"))
	assert.NoError(t, err)
	dummyDbInstance := dummyClient.Database("ledger_test")

	mdb := &MongoDB{logger: testLogger(), client: dummyClient, database: dummyDbInstance}
	assert.Equal(t, dummyDbInstance, mdb.Database())
	assert.Equal(t, "events", mdb.Collection("events").Name())
}

func TestMongoDB_PingWithoutClient(t *testing.T) {
	mdb := &MongoDB{logger: testLogger()}
	assert.Error(t, mdb.Ping(context.Background()))
}

func TestMongoDB_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "account_ids", Value: 1}},
		Options: options.Index().SetName("account_ids"),
	}

	mt.Run("creates", func(mt *mtest.T) {
		mdb := &MongoDB{logger: testLogger(), client: mt.Client, database: mt.DB}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, mdb.EnsureIndexes(context.Background(), "ledger_events", index))
	})

	mt.Run("server error", func(mt *mtest.T) {
		mdb := &MongoDB{logger: testLogger(), client: mt.Client, database: mt.DB}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 85, Message: "index options conflict"}))

		err := mdb.EnsureIndexes(context.Background(), "ledger_events", index)
		assert.ErrorContains(mt, err, "ledger_events")
	})

	mt.Run("nothing to do", func(mt *mtest.T) {
		mdb := &MongoDB{logger: testLogger(), client: mt.Client, database: mt.DB}
		assert.NoError(mt, mdb.EnsureIndexes(context.Background(), "ledger_events"))
	})
}
