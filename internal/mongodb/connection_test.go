package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Defaults(t *testing.T) {
	o := Options{URI: "mongodb://localhost:27017", Database: "foodcourt"}.withDefaults()

	assert.Equal(t, "india-food-court", o.AppName)
	assert.Equal(t, uint64(50), o.MaxPoolSize)
	assert.Equal(t, uint64(0), o.MinPoolSize)
	assert.Equal(t, 10*time.Second, o.ConnectTimeout)
	assert.Equal(t, 5*time.Second, o.ServerSelectionTimeout)
}

func TestOptions_ClientOptionsCarryPoolSettings(t *testing.T) {
	o := Options{URI: "mongodb://db:27017", Database: "x", MaxPoolSize: 20, MinPoolSize: 40}.withDefaults()
	// min never exceeds max
	assert.Equal(t, uint64(20), o.MinPoolSize)

	co := o.clientOptions()
	require.NotNil(t, co.MaxPoolSize)
	assert.Equal(t, uint64(20), *co.MaxPoolSize)
	require.NotNil(t, co.MinPoolSize)
	assert.Equal(t, uint64(20), *co.MinPoolSize)
	require.NotNil(t, co.AppName)
	assert.Equal(t, "india-food-court", *co.AppName)
}

func TestConnect_RequiresURIAndDatabase(t *testing.T) {
	_, err := Connect(context.Background(), Options{URI: "mongodb://localhost:27017"})
	assert.Error(t, err)
}

func TestDisconnect_Nil(t *testing.T) {
	assert.NoError(t, Disconnect(context.Background(), nil))
}
