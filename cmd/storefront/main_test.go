package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Chetan2520/india-food-court/internal/config"
	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/Chetan2520/india-food-court/internal/storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Client {
	return &config.Client{
		SessionID:          "cli-test",
		DBPath:             filepath.Join(t.TempDir(), "cart.db"),
		CartStore:          "sqlite",
		GeolocationTimeout: time.Second,
		RequestTimeout:     time.Second,
	}
}

func exec(t *testing.T, cfg *config.Client, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), cfg, zap.NewNop(), args, &out)
	return out.String(), err
}

func TestRun_CartCommandsPersistAcrossInvocations(t *testing.T) {
	cfg := testConfig(t)

	_, err := exec(t, cfg, "add", "-id", "a", "-name", "Samosa", "-price", "100", "-discount", "80", "-qty", "2")
	require.NoError(t, err)
	_, err = exec(t, cfg, "add", "-id", "b", "-name", "Chai", "-price", "40")
	require.NoError(t, err)

	out, err := exec(t, cfg, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "items: 3  total: 200.00")

	out, err = exec(t, cfg, "qty", "b", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 280.00")

	out, err = exec(t, cfg, "remove", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "items: 3  total: 120.00")

	_, err = exec(t, cfg, "clear")
	require.NoError(t, err)
	out, err = exec(t, cfg, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty")
}

func TestRun_UnknownCommand(t *testing.T) {
	_, err := exec(t, testConfig(t), "frobnicate")
	assert.Error(t, err)
}

func TestRun_LocateWithExplicitCoordinates(t *testing.T) {
	out, err := exec(t, testConfig(t), "locate", "-lat", "22.75", "-lng", "75.9")
	require.NoError(t, err)
	assert.Contains(t, out, "22.750000, 75.900000")
}

func TestRun_LocateDenied(t *testing.T) {
	_, err := exec(t, testConfig(t), "locate", "-deny")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Location access denied")
}

func TestRun_CheckoutEmptyCart(t *testing.T) {
	_, err := exec(t, testConfig(t), "checkout", "-lat", "22.75", "-lng", "75.9")
	require.Error(t, err)
	assert.Equal(t, "Your cart is empty", err.Error())
}

func TestChooseProvider(t *testing.T) {
	cfg := testConfig(t)

	p, err := chooseProvider(cfg, "", "", true)
	require.NoError(t, err)
	assert.IsType(t, storefront.DeniedProvider{}, p)

	p, err = chooseProvider(cfg, "1.5", "2.5", false)
	require.NoError(t, err)
	assert.Equal(t, storefront.StaticProvider{Coordinate: geo.Coordinate{Latitude: 1.5, Longitude: 2.5}}, p)

	_, err = chooseProvider(cfg, "1.5", "", false)
	assert.Error(t, err)

	p, err = chooseProvider(cfg, "", "", false)
	require.NoError(t, err)
	assert.IsType(t, &storefront.IPProvider{}, p)
}

func TestRun_ExplicitCoordinatesReplaceStoredLocation(t *testing.T) {
	cfg := testConfig(t)

	_, err := exec(t, cfg, "locate", "-lat", "10", "-lng", "20")
	require.NoError(t, err)

	out, err := exec(t, cfg, "locate", "-lat", "11", "-lng", "21")
	require.NoError(t, err)
	assert.Contains(t, out, "11.000000, 21.000000")

	// the stored location is reused; the denying provider is never asked
	out, err = exec(t, cfg, "locate", "-deny")
	require.NoError(t, err)
	assert.Contains(t, out, "11.000000, 21.000000")
}
