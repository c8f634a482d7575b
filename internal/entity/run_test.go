package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNew, m)

	m, err = ParseMode("new")
	require.NoError(t, err)
	assert.Equal(t, ModeNew, m)

	m, err = ParseMode("update")
	require.NoError(t, err)
	assert.Equal(t, ModeUpdate, m)

	_, err = ParseMode("refresh")
	assert.Error(t, err)
}

func TestNewProfileRecord_EmptySections(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	rec := NewProfileRecord("https://example.com/dr-a", ProfileFields{Name: "Dr. A"}, at)

	assert.Equal(t, "https://example.com/dr-a", rec.ProfileURL)
	assert.Nil(t, rec.Specialty)
	assert.NotNil(t, rec.PhoneNumbers)
	assert.Empty(t, rec.PhoneNumbers)
	assert.NotNil(t, rec.Addresses)
	assert.Empty(t, rec.Addresses)
	assert.Equal(t, time.UTC, rec.LastScrapedAt.Location())
	assert.True(t, rec.LastScrapedAt.Equal(at))
}
