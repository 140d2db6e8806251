package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := New[map[string]float64](filepath.Join(t.TempDir(), "zonal"))
	key := Key("T11SPS_20200501_B2-4_8.img", 1024, "FIELD_ID")

	_, ok := store.Get(key)
	assert.False(t, ok)

	require.NoError(t, store.Put(key, map[string]float64{"A": 0.25, "B": 0.5}))
	got, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, map[string]float64{"A": 0.25, "B": 0.5}, got)

	_, err := os.Stat(filepath.Join(store.Dir(), key+".json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreRejectsTamperedEntry(t *testing.T) {
	store := New[[]int](t.TempDir())
	require.NoError(t, store.Put("k", []int{1, 2, 3}))

	path := filepath.Join(store.Dir(), "k.json")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(string(raw[:len(raw)-1])+"x"), 0644))
	_, ok := store.Get("k")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte(`{"data":[9],"checksum":"nope"}`), 0644))
	_, ok = store.Get("k")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("a", 1), Key("a", 1))
	assert.NotEqual(t, Key("a", 1), Key("a", 2))
	assert.Len(t, Key(), 40)
}
