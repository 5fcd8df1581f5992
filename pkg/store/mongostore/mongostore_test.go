package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/3leaps/eae-utils/pkg/model"
	"github.com/3leaps/eae-utils/pkg/store"
)

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{name: "explicit database", uri: "mongodb://localhost:27017/eae", want: "eae"},
		{name: "database with options", uri: "mongodb://user:pw@db1,db2/opal?replicaSet=rs0", want: "opal"},
		{name: "no path", uri: "mongodb://localhost:27017", want: "test"},
		{name: "trailing slash", uri: "mongodb://localhost:27017/", want: "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := connstring.ParseAndValidate(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, databaseName(cs))
		})
	}

	assert.Equal(t, "test", databaseName(nil))
}

func TestFilterFor(t *testing.T) {
	f := filterFor(model.Key{IP: "10.0.0.4", Port: 9001})

	assert.Equal(t, bson.D{
		{Key: "ip", Value: "10.0.0.4"},
		{Key: "port", Value: 9001},
	}, f)
}

func TestStatusDocumentFieldNames(t *testing.T) {
	s := model.DefaultStatus()
	s.StatusLock = model.Locked

	raw, err := bson.Marshal(s)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))

	assert.Equal(t, true, doc["statusLock"])
	assert.Equal(t, "eae_service_idle", doc["status"])
	assert.Contains(t, doc, "computeType")
	assert.NotContains(t, doc, "_id")
}

func TestDecodeDropsStoreID(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"_id":    "65a1f0c2e4b0a1b2c3d4e5f6",
		"ip":     "10.0.0.4",
		"port":   9001,
		"status": "busy",
	})
	require.NoError(t, err)

	var out model.Status
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, model.Key{IP: "10.0.0.4", Port: 9001}, out.Key())
	assert.Equal(t, "busy", out.Status)
}

func TestOpen_RejectsInvalidURI(t *testing.T) {
	_, err := Open(t.Context(), "mongodb://")
	require.Error(t, err)
}

func TestRegistersSchemes(t *testing.T) {
	_, err := store.Connect(t.Context(), "mongodb://")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrUnsupportedScheme)
}
