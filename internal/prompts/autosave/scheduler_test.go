package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   []*domain.AutoSave
	err     error
	block   chan struct{}
	started chan struct{}
	panics  bool
}

func (f *fakeStore) CreateAutoSave(ctx context.Context, a *domain.AutoSave) error {
	f.mu.Lock()
	block, started, err, panics := f.block, f.started, f.err, f.panics
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if panics {
		panic("boom")
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.saved = append(f.saved, a)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func (f *fakeStore) last() *domain.AutoSave {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return nil
	}
	return f.saved[len(f.saved)-1]
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func draft(content string) domain.Draft {
	return domain.Draft{Content: domain.Content{Title: "Draft", Content: content}}
}

func newTestScheduler(store Store, interval time.Duration) *Scheduler {
	return NewScheduler(store, Config{Enabled: true, Interval: interval, TTL: time.Hour}, nil)
}

func TestScheduler_Disabled(t *testing.T) {
	s := NewScheduler(&fakeStore{}, Config{Enabled: false}, nil)
	assert.False(t, s.Start("doc", "u1", draft("x")))
	_, ok := s.State("doc")
	assert.False(t, ok)
	assert.False(t, s.MarkDirty("doc", draft("y")))
}

func TestScheduler_StartTwiceKeepsSession(t *testing.T) {
	s := newTestScheduler(&fakeStore{}, time.Hour)
	defer s.Close(context.Background())

	require.True(t, s.Start("doc", "u1", draft("x")))
	require.True(t, s.MarkDirty("doc", draft("y")))
	assert.False(t, s.Start("doc", "u1", draft("z")))

	state, ok := s.State("doc")
	require.True(t, ok)
	assert.True(t, state.IsDirty)
}

func TestScheduler_TickSavesDirtyDraftOnce(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, 20*time.Millisecond)
	defer s.Close(context.Background())

	require.True(t, s.Start("doc", "u1", draft("initial")))

	state, _ := s.State("doc")
	assert.False(t, state.IsDirty)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, store.count(), "clean document must not be saved")

	require.True(t, s.MarkDirty("doc", draft("edited")))
	state, _ = s.State("doc")
	assert.True(t, state.IsDirty)

	require.Eventually(t, func() bool {
		st, _ := s.State("doc")
		return !st.IsDirty && st.LastSaved != nil
	}, time.Second, 5*time.Millisecond)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, store.count())

	rec := store.last()
	require.NotNil(t, rec)
	assert.Equal(t, "edited", rec.Content)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.Equal(t, 1, rec.Metadata[domain.MetaRevision])
	assert.Equal(t, "doc", rec.Metadata[domain.MetaDocumentID])
	assert.WithinDuration(t, rec.CreatedAt.Add(time.Hour), rec.ExpiresAt, time.Millisecond)
}

func TestScheduler_ForceSave(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, time.Hour)
	defer s.Close(context.Background())

	t.Run("unknown document", func(t *testing.T) {
		assert.False(t, s.ForceSave(context.Background(), "missing", "u1"))
	})

	require.True(t, s.Start("doc", "u1", draft("initial")))

	t.Run("saves clean document", func(t *testing.T) {
		assert.True(t, s.ForceSave(context.Background(), "doc", ""))
		assert.Equal(t, 1, store.count())
		assert.Equal(t, "initial", store.last().Content)
	})

	t.Run("revision increments and owner can change", func(t *testing.T) {
		s.MarkDirty("doc", draft("second"))
		assert.True(t, s.ForceSave(context.Background(), "doc", "u2"))
		rec := store.last()
		assert.Equal(t, 2, rec.Metadata[domain.MetaRevision])
		assert.Equal(t, "u2", rec.OwnerID)

		state, _ := s.State("doc")
		assert.False(t, state.IsDirty)
	})
}

func TestScheduler_FailureKeepsDirtyAndRecovers(t *testing.T) {
	store := &fakeStore{err: errors.New("redis down")}
	s := newTestScheduler(store, time.Hour)
	defer s.Close(context.Background())

	require.True(t, s.Start("doc", "u1", draft("x")))
	s.MarkDirty("doc", draft("y"))

	assert.False(t, s.ForceSave(context.Background(), "doc", ""))
	state, _ := s.State("doc")
	assert.True(t, state.IsDirty)
	assert.False(t, state.IsSaving)
	assert.Equal(t, "redis down", state.Error)
	assert.Nil(t, state.LastSaved)

	store.setErr(nil)
	assert.True(t, s.ForceSave(context.Background(), "doc", ""))
	state, _ = s.State("doc")
	assert.False(t, state.IsDirty)
	assert.Empty(t, state.Error)
	assert.NotNil(t, state.LastSaved)
}

func TestScheduler_TickerSurvivesFailures(t *testing.T) {
	store := &fakeStore{err: errors.New("transient")}
	s := newTestScheduler(store, 10*time.Millisecond)
	defer s.Close(context.Background())

	require.True(t, s.Start("doc", "u1", draft("x")))
	s.MarkDirty("doc", draft("y"))

	require.Eventually(t, func() bool {
		st, _ := s.State("doc")
		return st.Error == "transient"
	}, time.Second, 5*time.Millisecond)

	store.setErr(nil)
	require.Eventually(t, func() bool {
		st, _ := s.State("doc")
		return !st.IsDirty && st.Error == ""
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, store.count())
}

func TestScheduler_StorePanicBecomesError(t *testing.T) {
	store := &fakeStore{panics: true}
	s := newTestScheduler(store, time.Hour)
	defer s.Close(context.Background())

	require.True(t, s.Start("doc", "u1", draft("x")))
	assert.False(t, s.ForceSave(context.Background(), "doc", ""))

	state, _ := s.State("doc")
	assert.Contains(t, state.Error, "panicked")
	assert.False(t, state.IsSaving)
}

func TestScheduler_RefusesConcurrentSave(t *testing.T) {
	store := &fakeStore{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := newTestScheduler(store, time.Hour)
	defer s.Close(context.Background())

	require.True(t, s.Start("doc", "u1", draft("x")))

	result := make(chan bool, 1)
	go func() { result <- s.ForceSave(context.Background(), "doc", "") }()
	<-store.started

	state, _ := s.State("doc")
	assert.True(t, state.IsSaving)
	assert.False(t, s.ForceSave(context.Background(), "doc", ""), "second save must be refused while one is in flight")

	// An edit during the save keeps the document dirty afterwards.
	s.MarkDirty("doc", draft("edited during save"))

	close(store.block)
	assert.True(t, <-result)

	state, _ = s.State("doc")
	assert.False(t, state.IsSaving)
	assert.True(t, state.IsDirty)
	assert.Equal(t, 1, store.count())
}

func TestScheduler_Subscribe(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, time.Hour)
	defer s.Close(context.Background())

	assert.NotNil(t, s.Subscribe("missing", func(string, domain.AutoSaveState) {}))

	require.True(t, s.Start("doc", "u1", draft("x")))

	var mu sync.Mutex
	var a, b []domain.AutoSaveState
	unsubA := s.Subscribe("doc", func(_ string, st domain.AutoSaveState) {
		mu.Lock()
		a = append(a, st)
		mu.Unlock()
	})
	s.Subscribe("doc", func(_ string, st domain.AutoSaveState) {
		mu.Lock()
		b = append(b, st)
		mu.Unlock()
	})

	s.MarkDirty("doc", draft("y"))
	require.True(t, s.ForceSave(context.Background(), "doc", ""))

	mu.Lock()
	require.Len(t, a, 3)
	assert.True(t, a[0].IsDirty)
	assert.True(t, a[1].IsSaving)
	assert.False(t, a[2].IsSaving)
	assert.False(t, a[2].IsDirty)
	assert.Len(t, b, 3)
	mu.Unlock()

	unsubA()
	s.MarkDirty("doc", draft("z"))

	mu.Lock()
	assert.Len(t, a, 3)
	assert.Len(t, b, 4)
	mu.Unlock()
}

func TestScheduler_Stop(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, 10*time.Millisecond)
	defer s.Close(context.Background())

	require.True(t, s.Start("doc", "u1", draft("x")))

	notified := 0
	s.Subscribe("doc", func(string, domain.AutoSaveState) { notified++ })

	s.Stop("doc")
	s.Stop("doc")

	_, ok := s.State("doc")
	assert.False(t, ok)
	assert.False(t, s.MarkDirty("doc", draft("y")))

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, store.count())
	assert.Equal(t, 0, notified)

	assert.True(t, s.Start("doc", "u1", draft("fresh")), "a stopped document can start again")
}

func TestScheduler_StopDuringSaveLetsItFinish(t *testing.T) {
	store := &fakeStore{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := newTestScheduler(store, time.Hour)

	require.True(t, s.Start("doc", "u1", draft("x")))

	result := make(chan bool, 1)
	go func() { result <- s.ForceSave(context.Background(), "doc", "") }()
	<-store.started

	s.Stop("doc")
	close(store.block)

	assert.True(t, <-result)
	assert.Equal(t, 1, store.count())
	require.NoError(t, s.Close(context.Background()))
}

func TestScheduler_IndependentDocuments(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, 10*time.Millisecond)
	defer s.Close(context.Background())

	require.True(t, s.Start("a", "u1", draft("a")))
	require.True(t, s.Start("b", "u2", draft("b")))
	s.MarkDirty("a", draft("a2"))

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "a2", store.last().Content)

	st, _ := s.State("b")
	assert.False(t, st.IsDirty)
	assert.Nil(t, st.LastSaved)
}

func TestScheduler_CloseSavesDirtyDrafts(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, time.Hour)

	require.True(t, s.Start("dirty", "u1", draft("x")))
	require.True(t, s.Start("clean", "u1", draft("untouched")))
	s.MarkDirty("dirty", draft("pending edit"))

	require.NoError(t, s.Close(context.Background()))

	require.Equal(t, 1, store.count(), "only the dirty draft is saved")
	assert.Equal(t, "pending edit", store.last().Content)

	_, ok := s.State("dirty")
	assert.False(t, ok)
}

func TestScheduler_CloseReportsUnsavedDrafts(t *testing.T) {
	store := &fakeStore{err: errors.New("redis down")}
	s := newTestScheduler(store, time.Hour)

	require.True(t, s.Start("doc", "u1", draft("x")))
	s.MarkDirty("doc", draft("lost"))

	err := s.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestScheduler_CloseCanceled(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, time.Hour)

	require.True(t, s.Start("doc", "u1", draft("x")))
	s.MarkDirty("doc", draft("y"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Close(ctx), context.Canceled)
}

func TestScheduler_FailedForceSaveOfCleanDraftMarksDirty(t *testing.T) {
	store := &fakeStore{err: errors.New("timeout")}
	s := newTestScheduler(store, time.Hour)
	defer s.Close(context.Background())

	require.True(t, s.Start("doc", "u1", draft("x")))
	state, _ := s.State("doc")
	require.False(t, state.IsDirty)

	assert.False(t, s.ForceSave(context.Background(), "doc", ""))
	state, _ = s.State("doc")
	assert.True(t, state.IsDirty, "the next tick retries the content")
	assert.Equal(t, "timeout", state.Error)
}
