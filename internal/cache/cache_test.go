package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	rows   map[string]string
	gets   int
	failed bool
}

func (s *mapStore) Get(_ context.Context, hash string) (string, bool, error) {
	s.gets++
	if s.failed {
		return "", false, errors.New("db down")
	}
	v, ok := s.rows[hash]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, hash, _, translated string) error {
	if s.failed {
		return errors.New("db down")
	}
	s.rows[hash] = translated
	return nil
}

func (s *mapStore) All(context.Context) (map[string]string, error) {
	return s.rows, nil
}

func TestMemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := NewTranslationCache(nil)

	_, ok := c.Get(ctx, "en", "Guardar")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "en", "Guardar", "Save"))
	v, ok := c.Get(ctx, "en", "Guardar")
	require.True(t, ok)
	assert.Equal(t, "Save", v)

	_, ok = c.Get(ctx, "de", "Guardar")
	assert.False(t, ok, "target language is part of the key")
	require.NoError(t, c.Preload(ctx))
}

func TestStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	store := &mapStore{rows: map[string]string{Key("en", "Cancelar"): "Cancel"}}
	c := NewTranslationCache(store)

	v, ok := c.Get(ctx, "en", "Cancelar")
	require.True(t, ok)
	assert.Equal(t, "Cancel", v)

	_, _ = c.Get(ctx, "en", "Cancelar")
	assert.Equal(t, 1, store.gets, "second lookup is served from memory")

	require.NoError(t, c.Set(ctx, "en", "Salir", "Exit"))
	assert.Equal(t, "Exit", store.rows[Key("en", "Salir")])
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	c := NewTranslationCache(&mapStore{rows: map[string]string{}, failed: true})

	_, ok := c.Get(ctx, "en", "Hola")
	assert.False(t, ok)

	err := c.Set(ctx, "en", "Hola", "Hello")
	require.Error(t, err)
	v, ok := c.Get(ctx, "en", "Hola")
	require.True(t, ok, "memory is updated even when the store fails")
	assert.Equal(t, "Hello", v)
}

func TestPreload(t *testing.T) {
	store := &mapStore{rows: map[string]string{Key("en", "Sí"): "Yes", Key("en", "No"): "No"}}
	c := NewTranslationCache(store)

	require.NoError(t, c.Preload(context.Background()))
	assert.Equal(t, 2, c.Len())
}
