package store_test

import (
	"context"
	"errors"
	"testing"

	"refloor/internal/calculator/models"
	"refloor/internal/calculator/pricing"
	"refloor/internal/calculator/repository"
	"refloor/internal/calculator/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newStore(t *testing.T) (*store.Store, store.Storage) {
	t.Helper()
	storage := repository.NewMemory().ForSession("test")
	return store.New(storage, zaptest.NewLogger(t)), storage
}

func TestLoad_AbsentReturnsDefaults(t *testing.T) {
	s, _ := newStore(t)

	state := s.Load(context.Background())

	assert.Equal(t, store.Defaults(), state)
	assert.NotNil(t, state.Segments)
}

func TestLoad_CorruptDataIsCleared(t *testing.T) {
	cases := map[string]string{
		"not json":         `{"mainRoom":`,
		"null":             `null`,
		"no room":          `{"segments":[],"materialType":"pvc","layingMethod":"direct"}`,
		"unknown material": `{"mainRoom":{"width":1,"length":1},"materialType":"carpet","layingMethod":"direct"}`,
		"unknown method":   `{"mainRoom":{"width":1,"length":1},"materialType":"pvc","layingMethod":"zigzag"}`,
		"duplicate ids": `{"mainRoom":{"width":1,"length":1},"materialType":"pvc","layingMethod":"direct",
			"segments":[{"id":"x","type":"add","width":1,"length":1},{"id":"x","type":"add","width":1,"length":1}]}`,
		"empty id": `{"mainRoom":{"width":1,"length":1},"materialType":"pvc","layingMethod":"direct",
			"segments":[{"id":"","type":"add","width":1,"length":1}]}`,
		"unknown type": `{"mainRoom":{"width":1,"length":1},"materialType":"pvc","layingMethod":"direct",
			"segments":[{"id":"x","type":"multiply","width":1,"length":1}]}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s, storage := newStore(t)
			require.NoError(t, storage.Set(ctx, store.StorageKey, []byte(raw)))

			state := s.Load(ctx)

			assert.Equal(t, store.Defaults(), state)
			_, err := storage.Get(ctx, store.StorageKey)
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestLoad_OnCorruptFiresOnlyForCorruptData(t *testing.T) {
	ctx := context.Background()
	storage := repository.NewMemory().ForSession("test")
	calls := 0
	s := store.New(storage, zaptest.NewLogger(t), store.OnCorrupt(func() { calls++ }))

	s.Load(ctx)
	assert.Equal(t, 0, calls, "absent state is not corrupt")

	require.NoError(t, s.Save(ctx, store.Defaults()))
	s.Load(ctx)
	assert.Equal(t, 0, calls)

	require.NoError(t, storage.Set(ctx, store.StorageKey, []byte(`{"mainRoom":`)))
	s.Load(ctx)
	assert.Equal(t, 1, calls)

	// повреждённые данные уже удалены
	s.Load(ctx)
	assert.Equal(t, 1, calls)
}

func TestLoad_NormalizesNegativeDimensions(t *testing.T) {
	ctx := context.Background()
	s, storage := newStore(t)
	raw := `{"mainRoom":{"width":-3,"length":4},"materialType":"pvc","layingMethod":"direct",
		"segments":[{"id":"x","type":"subtract","width":-1,"length":-2}]}`
	require.NoError(t, storage.Set(ctx, store.StorageKey, []byte(raw)))

	state := s.Load(ctx)

	assert.Equal(t, 3.0, state.Room.Width)
	require.Len(t, state.Segments, 1)
	assert.Equal(t, 1.0, state.Segments[0].Width)
	assert.Equal(t, 2.0, state.Segments[0].Length)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	want := &models.State{
		Room: models.Room{Width: 5.25, Length: 3.1},
		Segments: []models.Segment{
			{ID: "b3b1", Kind: models.SegmentAdd, Width: 2, Length: 1.5},
			{ID: "c7d2", Kind: models.SegmentSubtract, Width: 0.5, Length: 0.5},
		},
		Material:     "spc-laminate",
		LayingMethod: "herringbone",
	}
	require.NoError(t, s.Save(ctx, want))

	got := s.Load(ctx)
	assert.Equal(t, want, got)
}

func TestSave_UsesPersistedFieldNames(t *testing.T) {
	ctx := context.Background()
	s, storage := newStore(t)

	require.NoError(t, s.Save(ctx, store.Defaults()))

	data, err := storage.Get(ctx, store.StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"mainRoom":{"width":3,"length":4},"segments":[],"materialType":"pvc","layingMethod":"direct"}`,
		string(data))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, storage := newStore(t)
	require.NoError(t, s.Save(ctx, store.Defaults()))

	require.NoError(t, s.Clear(ctx))

	_, err := storage.Get(ctx, store.StorageKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResetToDefaults_KeepsIdentity(t *testing.T) {
	state := &models.State{
		Room:         models.Room{Width: 9, Length: 9},
		Segments:     []models.Segment{{ID: "x", Kind: models.SegmentAdd, Width: 1, Length: 1}},
		Material:     "quartz-parquet",
		LayingMethod: "diagonal",
	}
	ref := state

	store.ResetToDefaults(state)

	assert.Same(t, ref, state)
	assert.Equal(t, store.Defaults(), state)
	assert.Equal(t, pricing.Calculate(store.Defaults()), pricing.Calculate(state))
}

func TestDefaults_AreIndependentCopies(t *testing.T) {
	a := store.Defaults()
	a.Segments = append(a.Segments, models.Segment{ID: "x", Kind: models.SegmentAdd})
	a.Room.Width = 100

	b := store.Defaults()
	assert.Empty(t, b.Segments)
	assert.Equal(t, store.DefaultRoomWidth, b.Room.Width)
}

type failingStorage struct{}

func (failingStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}
func (failingStorage) Set(context.Context, string, []byte) error { return errors.New("disk on fire") }
func (failingStorage) Delete(context.Context, string) error      { return errors.New("disk on fire") }

func TestStore_StorageFailures(t *testing.T) {
	ctx := context.Background()
	s := store.New(failingStorage{}, zaptest.NewLogger(t))

	assert.Equal(t, store.Defaults(), s.Load(ctx))
	assert.Error(t, s.Save(ctx, store.Defaults()))
	assert.Error(t, s.Clear(ctx))
}
