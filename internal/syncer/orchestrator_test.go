package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modicscan/syncengine/internal/common"
	"github.com/modicscan/syncengine/internal/cryptox"
	"github.com/modicscan/syncengine/internal/logging"
	"github.com/modicscan/syncengine/internal/reconciler"
	"github.com/modicscan/syncengine/internal/remote/identity"
	"github.com/modicscan/syncengine/internal/store"
	"github.com/modicscan/syncengine/internal/store/models"
	"github.com/modicscan/syncengine/internal/uploader"

	_ "modernc.org/sqlite"
)

type fakeProvider struct {
	mu          sync.Mutex
	createCalls int
}

func (f *fakeProvider) CreateAccount(ctx context.Context, email, password string) (*identity.RemoteIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return &identity.RemoteIdentity{ID: fmt.Sprintf("remote-%d", f.createCalls), Email: email}, nil
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*identity.RemoteIdentity, error) {
	return nil, errors.New("unexpected SignIn call")
}

func (f *fakeProvider) SendPasswordReset(ctx context.Context, email string) error        { return nil }
func (f *fakeProvider) SendEmailVerification(ctx context.Context, idToken string) error { return nil }

// fakeDocs fails the first failRecords UpsertRecord calls with a network
// error, then succeeds.
type fakeDocs struct {
	mu          sync.Mutex
	failRecords int
	records     map[string]map[string]any
	profiles    map[string]map[string]any
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{records: map[string]map[string]any{}, profiles: map[string]map[string]any{}}
}

func (f *fakeDocs) UpsertProfile(ctx context.Context, ownerID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[ownerID] = fields
	return nil
}

func (f *fakeDocs) UpsertRecord(ctx context.Context, ownerID, recordID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRecords > 0 {
		f.failRecords--
		return fmt.Errorf("%w: docs unreachable", common.ErrNetwork)
	}
	f.records[ownerID+"/"+recordID] = fields
	return nil
}

func (f *fakeDocs) PatchRecordAssets(ctx context.Context, ownerID, recordID string, urls []string) error {
	return nil
}

func (f *fakeDocs) ReownRecords(ctx context.Context, oldOwnerID, newOwnerID string) (int, error) {
	return 0, nil
}

func (f *fakeDocs) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type nopObjects struct{}

func (nopObjects) Upload(ctx context.Context, ownerID, name string, body []byte) (string, error) {
	return "https://assets.example.com/" + ownerID + "/" + name, nil
}

func (nopObjects) Delete(ctx context.Context, url string) error { return nil }

type syncHarness struct {
	orch     *Orchestrator
	store    *store.Store
	svc      *reconciler.Service
	provider *fakeProvider
	docs     *fakeDocs
}

func setupOrchestrator(t *testing.T) *syncHarness {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	provider := &fakeProvider{}
	ds := newFakeDocs()
	guard := cryptox.NewGuard(cryptox.NewDerivedKeeper([]byte("test-secret")))

	svc := reconciler.NewService(st, provider, ds, guard, logger)
	proc := uploader.NewProcessor(st, nopObjects{}, ds, 100, logger)

	return &syncHarness{
		orch:     NewOrchestrator(st, svc, proc, ds, logger),
		store:    st,
		svc:      svc,
		provider: provider,
		docs:     ds,
	}
}

func seedRecord(t *testing.T, st *store.Store, id, ownerID string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, st.Records.Upsert(context.Background(), &models.OwnedRecord{
		ID: id, OwnerID: ownerID, RecordType: "analysis",
		Content: []byte(`{"score":0.87}`), SyncStatus: models.StatusPending,
		CreatedAt: now, ModifiedAt: now,
	}))
}

func TestRun_FullScope(t *testing.T) {
	ctx := context.Background()
	h := setupOrchestrator(t)

	out, err := h.svc.SignUp(ctx, "a@b.c", "secret123", "", false)
	require.NoError(t, err)
	seedRecord(t, h.store, "rec-1", out.ID)

	state, err := h.orch.Run(ctx, ScopeFull)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, state)
	assert.Equal(t, StateSuccess, h.orch.State())

	// records pushed under the migrated identifier
	rec, err := h.store.Records.GetByID(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "remote-1", rec.OwnerID)
	assert.Equal(t, models.StatusSynced, rec.SyncStatus)
	assert.Contains(t, h.docs.records, "remote-1/rec-1")

	counts, err := h.store.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Total())
}

func TestRun_IdentityOnly_SkipsData(t *testing.T) {
	ctx := context.Background()
	h := setupOrchestrator(t)

	out, err := h.svc.SignUp(ctx, "a@b.c", "secret123", "", false)
	require.NoError(t, err)
	seedRecord(t, h.store, "rec-1", out.ID)

	state, err := h.orch.Run(ctx, ScopeIdentityOnly)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, state)

	rec, err := h.store.Records.GetByID(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, rec.SyncStatus)
	assert.Equal(t, "remote-1", rec.OwnerID) // re-pointed by migration
	assert.Empty(t, h.docs.recordCount())
}

func TestRun_DataOnly_SkipsMigration(t *testing.T) {
	ctx := context.Background()
	h := setupOrchestrator(t)

	out, err := h.svc.SignUp(ctx, "a@b.c", "secret123", "", false)
	require.NoError(t, err)
	seedRecord(t, h.store, "rec-1", out.ID)

	state, err := h.orch.Run(ctx, ScopeDataOnly)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, state)
	assert.Zero(t, h.provider.createCalls)

	// pushed under the local identifier, migration happens on another scope
	assert.Contains(t, h.docs.records, out.ID+"/rec-1")
}

func TestRun_NetworkFailureEndsInRetry(t *testing.T) {
	ctx := context.Background()
	h := setupOrchestrator(t)

	seedRecord(t, h.store, "rec-1", "owner-1")
	h.docs.failRecords = 10

	state, err := h.orch.Run(ctx, ScopeDataOnly)
	require.Error(t, err)
	assert.Equal(t, StateRetry, state)

	rec, err := h.store.Records.GetByID(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.SyncStatus)
}

func TestScheduler_NamedSlotReplacement(t *testing.T) {
	h := setupOrchestrator(t)
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewScheduler(h.orch, time.Millisecond, 5*time.Millisecond, 2, logger)

	// scheduler not running: queued same-name requests collapse
	s.Trigger("periodic", ScopeFull)
	s.Trigger("periodic", ScopeDataOnly)
	s.Trigger("manual", ScopeFull)
	assert.Equal(t, 2, s.Pending())
}

func TestScheduler_RetriesUntilSuccess(t *testing.T) {
	h := setupOrchestrator(t)

	seedRecord(t, h.store, "rec-1", "owner-1")
	h.docs.failRecords = 2 // two runs fail, the third succeeds

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewScheduler(h.orch, time.Millisecond, 5*time.Millisecond, 5, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	s.Trigger("manual", ScopeDataOnly)

	require.Eventually(t, func() bool {
		return h.docs.recordCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	s.Wait()
	assert.Zero(t, s.Pending())
}

func TestWatcher_FiresOnOfflineToOnline(t *testing.T) {
	var mu sync.Mutex
	online := false
	fired := 0

	pinger := PingFunc(func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if !online {
			return errors.New("unreachable")
		}
		return nil
	})

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	w := NewWatcher(pinger, 5*time.Millisecond, func() {
		mu.Lock()
		fired++
		mu.Unlock()
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	assert.Never(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired > 0
	}, 50*time.Millisecond, 10*time.Millisecond)

	mu.Lock()
	online = true
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired == 1 && w.Online()
	}, 5*time.Second, 10*time.Millisecond)
}
