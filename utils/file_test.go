package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageKey(t *testing.T) {
	key, err := ImageKey("La Tomba degli Orrori", "cover.PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "tables/la-tomba-degli-orrori-"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)

	key, err = ImageKey("!!!", "x.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "tables/table-"), key)

	_, err = ImageKey("Tomb", "payload.exe")
	assert.Error(t, err)
}

func TestImageContentType(t *testing.T) {
	ct, ok := ImageContentType("a.jpeg")
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", ct)

	_, ok = ImageContentType("a.gif")
	assert.False(t, ok)
}

func TestListingKey(t *testing.T) {
	at := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	key := ListingKey(at, "Tavoli attivi")
	assert.True(t, strings.HasPrefix(key, "listings/2026-10-16-tavoli-attivi-"), key)
	assert.True(t, strings.HasSuffix(key, ".json"), key)
}
