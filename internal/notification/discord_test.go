package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordSuccess(t *testing.T) {
	var got DiscordMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := &Discord{SuccessURL: server.URL, Client: server.Client()}
	err := d.Success(context.Background(), "run-1", "27 fields selected", DiscordField{Name: "Acreage", Value: "312.5"})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, colorGreen, got.Embeds[0].Color)
	assert.Contains(t, got.Embeds[0].Description, "run-1")
	assert.Equal(t, []DiscordField{{Name: "Acreage", Value: "312.5"}}, got.Embeds[0].Fields)
}

func TestDiscordError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := &Discord{ErrorURL: server.URL}
	err := d.Error(context.Background(), "run-2", errors.New("boom"))
	require.ErrorContains(t, err, "429")
}

func TestDiscordDisabled(t *testing.T) {
	t.Setenv("DISCORD_ERROR_NOTIFICATION_URL", "")
	t.Setenv("DISCORD_SUCCESS_NOTIFICATION_URL", "")
	d := NewDiscord()
	require.NoError(t, d.Error(context.Background(), "run-3", errors.New("boom")))
	require.NoError(t, d.Success(context.Background(), "run-3", "done"))
}
