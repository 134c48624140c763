package owner

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/pam/errors"
	pamtest "github.com/teranos/pam/internal/testing"
	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/recordstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStore answers owner queries by entity and records the call sequence.
type fakeStore struct {
	mu       sync.Mutex
	results  map[string][]recordstore.Record
	failures map[string]error
	calls    []string
	inFlight int
	overlap  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		results:  make(map[string][]recordstore.Record),
		failures: make(map[string]error),
	}
}

func (f *fakeStore) Query(ctx context.Context, q recordstore.Query) ([]recordstore.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q.Entity)
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	err := f.failures[q.Entity]
	res := f.results[q.Entity]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func users(names ...string) []recordstore.Record {
	var out []recordstore.Record
	for _, n := range names {
		out = append(out, recordstore.Record{"systemuserid": "u-" + n, "fullname": n})
	}
	return out
}

func teams(names ...string) []recordstore.Record {
	var out []recordstore.Record
	for _, n := range names {
		out = append(out, recordstore.Record{"teamid": "t-" + n, "name": n, "teamtype": int64(0)})
	}
	return out
}

func names(owners []Owner) []string {
	out := make([]string, len(owners))
	for i, o := range owners {
		out[i] = o.Kind.String() + ":" + o.Name
	}
	return out
}

func newTestDirectory(t *testing.T, store *fakeStore, updates *int) *Directory {
	loader := NewLoader(store, WithLoaderLogger(zaptest.NewLogger(t).Sugar()))
	return NewDirectory(loader, WithUpdateListener(func(*Snapshot) { *updates++ }))
}

func TestDirectory_Load(t *testing.T) {
	t.Run("users precede teams, each in store order", func(t *testing.T) {
		store := newFakeStore()
		store.results["systemuser"] = users("alice", "Bob", "Carol")
		store.results["team"] = teams("field ops", "Field Sales", "Support")

		updates := 0
		dir := newTestDirectory(t, store, &updates)

		snap, err := dir.Load(context.Background())
		require.NoError(t, err)

		want := []string{"user:alice", "user:Bob", "user:Carol", "team:field ops", "team:Field Sales", "team:Support"}
		if diff := cmp.Diff(want, names(snap.Owners())); diff != "" {
			t.Errorf("directory order mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, 6, snap.Len())
		assert.Len(t, snap.Users(), 3)
		assert.Len(t, snap.Teams(), 3)
		assert.Equal(t, 1, updates)
		assert.Same(t, snap, dir.Current())
	})

	t.Run("phases run strictly in sequence", func(t *testing.T) {
		store := newFakeStore()
		store.results["systemuser"] = users("A")
		store.results["team"] = teams("T")

		updates := 0
		_, err := newTestDirectory(t, store, &updates).Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"systemuser", "team"}, store.calls)
		assert.False(t, store.overlap)
	})

	t.Run("user phase failure still merges teams", func(t *testing.T) {
		store := newFakeStore()
		store.failures["systemuser"] = errors.New("timeout talking to organisation")
		store.results["team"] = teams("Finance", "Ops")

		updates := 0
		dir := newTestDirectory(t, store, &updates)

		snap, err := dir.Load(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrQueryFailure))

		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
		assert.True(t, loadErr.Failed(PhaseUsers))
		assert.False(t, loadErr.Failed(PhaseTeams))

		assert.Equal(t, []string{"team:Finance", "team:Ops"}, names(snap.Owners()))
		assert.Equal(t, 1, updates)
		assert.Equal(t, 2, dir.Current().Len())
	})

	t.Run("team phase failure keeps users", func(t *testing.T) {
		store := newFakeStore()
		store.results["systemuser"] = users("Zed")
		store.failures["team"] = errors.New("denied")

		updates := 0
		snap, err := newTestDirectory(t, store, &updates).Load(context.Background())

		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
		assert.True(t, loadErr.Failed(PhaseTeams))
		assert.Equal(t, []string{"user:Zed"}, names(snap.Owners()))
		assert.Equal(t, 1, updates)
	})

	t.Run("both phases failing yields empty snapshot and one update", func(t *testing.T) {
		store := newFakeStore()
		store.failures["systemuser"] = errors.New("down")
		store.failures["team"] = errors.New("down")

		updates := 0
		snap, err := newTestDirectory(t, store, &updates).Load(context.Background())

		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
		assert.Len(t, loadErr.Failures, 2)
		assert.Equal(t, 0, snap.Len())
		assert.Equal(t, 1, updates)
	})

	t.Run("consecutive loads replace wholesale", func(t *testing.T) {
		store := newFakeStore()
		store.results["systemuser"] = users("Old User")
		store.results["team"] = teams("Old Team")

		updates := 0
		dir := newTestDirectory(t, store, &updates)

		first, err := dir.Load(context.Background())
		require.NoError(t, err)

		store.mu.Lock()
		store.results["systemuser"] = users("New User")
		store.results["team"] = nil
		store.mu.Unlock()

		second, err := dir.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"user:Old User", "team:Old Team"}, names(first.Owners()))
		assert.Equal(t, []string{"user:New User"}, names(second.Owners()))
		_, leaked := second.Find("u-Old User")
		assert.False(t, leaked)
		assert.Equal(t, 2, updates)
	})

	t.Run("cancelled context skips the team phase", func(t *testing.T) {
		store := newFakeStore()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		updates := 0
		_, err := newTestDirectory(t, store, &updates).Load(ctx)

		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
		assert.True(t, loadErr.Failed(PhaseTeams))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, []string{"systemuser"}, store.calls)
	})

	t.Run("duplicate ids are dropped", func(t *testing.T) {
		store := newFakeStore()
		store.results["systemuser"] = append(users("Ann"), users("Ann")...)
		store.results["team"] = teams("T")

		updates := 0
		snap, err := newTestDirectory(t, store, &updates).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Len())
	})

	t.Run("records without id are skipped", func(t *testing.T) {
		store := newFakeStore()
		store.results["systemuser"] = []recordstore.Record{{"fullname": "Ghost"}}

		updates := 0
		snap, err := newTestDirectory(t, store, &updates).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Len())
	})
}

func TestDirectory_Invalidate(t *testing.T) {
	store := newFakeStore()
	store.results["systemuser"] = users("A", "B")

	updates := 0
	dir := newTestDirectory(t, store, &updates)
	_, err := dir.Load(context.Background())
	require.NoError(t, err)
	callsBefore := store.callCount()

	dir.Invalidate()

	assert.Equal(t, 0, dir.Current().Len())
	assert.Equal(t, 2, updates)
	assert.Equal(t, callsBefore, store.callCount(), "invalidate must not query the store")
}

func TestDirectory_InitialState(t *testing.T) {
	dir := NewDirectory(NewLoader(newFakeStore()))
	require.NotNil(t, dir.Current())
	assert.Equal(t, 0, dir.Current().Len())
	assert.True(t, dir.Current().LoadedAt().IsZero())
}

func TestDirectory_LoadAsync(t *testing.T) {
	store := newFakeStore()
	store.results["team"] = teams("Async")

	var mu sync.Mutex
	var notified []*Snapshot
	dir := NewDirectory(NewLoader(store), WithUpdateListener(func(s *Snapshot) {
		mu.Lock()
		notified = append(notified, s)
		mu.Unlock()
	}))

	results := dir.LoadAsync(context.Background())
	res, ok := <-results
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"team:Async"}, names(res.Snapshot.Owners()))

	_, open := <-results
	assert.False(t, open, "channel closes after the single result")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notified, 1)
	assert.Same(t, res.Snapshot, notified[0])
}

func TestLoader_SQLite(t *testing.T) {
	database := pamtest.CreateTestDB(t)

	_, err := database.Exec(`
		INSERT INTO systemuser (systemuserid, fullname, isdisabled, accessmode) VALUES
			('u1', 'Mia', 0, 0), ('u2', 'Ava', 0, 0), ('u3', 'Leo', 0, 0), ('u8', 'ben', 0, 0),
			('u4', 'Off', 1, 0), ('u5', 'Bot', 0, 3), ('u6', 'Admin', 0, 5), ('u7', 'Roleless', 0, 0);
		INSERT INTO systemuserroles (systemuserroleid, systemuserid, roleid) VALUES
			('r1', 'u1', 'x'), ('r2', 'u2', 'x'), ('r3', 'u3', 'x'), ('r3b', 'u3', 'y'),
			('r4', 'u4', 'x'), ('r5', 'u5', 'x'), ('r6', 'u6', 'x'), ('r8', 'u8', 'x');
		INSERT INTO team (teamid, name, teamtype) VALUES
			('t1', 'Sales', 0), ('t2', 'Access Team', 1), ('t3', 'Marketing', 0), ('t4', 'field ops', 0);
	`)
	require.NoError(t, err)

	loader := NewLoader(recordstore.NewSQLQuerier(database, nil))
	snap, err := loader.Load(context.Background())
	require.NoError(t, err)

	// Names sort without regard to case, as on the CRM
	want := []string{"user:Ava", "user:ben", "user:Leo", "user:Mia", "team:field ops", "team:Marketing", "team:Sales"}
	if diff := cmp.Diff(want, names(snap.Owners())); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}
	owner, ok := snap.Find("t3")
	require.True(t, ok)
	assert.Equal(t, KindTeam, owner.Kind)
}

func TestLoader_LogsContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := newFakeStore()
	store.results["systemuser"] = users("Ava")
	store.failures["team"] = errors.New("timeout")

	loader := NewLoader(store, WithLoaderLogger(zap.New(core).Sugar()))
	ctx := logger.WithComponent(context.Background(), "cli.owners")
	_, err := loader.Load(ctx)
	require.Error(t, err)

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "cli.owners", entry.ContextMap()[logger.FieldComponent], entry.Message)
	}
	assert.Equal(t, 1, logs.FilterMessage("Owner query failed").Len())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "systemuser", KindUser.LogicalName())
	assert.Equal(t, "team", KindTeam.LogicalName())
	assert.Equal(t, "", Kind(0).LogicalName())

	k, ok := ParseKind("systemuser")
	assert.True(t, ok)
	assert.Equal(t, KindUser, k)
	_, ok = ParseKind("queue")
	assert.False(t, ok)
}

func TestKind_Text(t *testing.T) {
	b, err := KindTeam.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "team", string(b))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("systemuser")))
	assert.Equal(t, KindUser, k)
	assert.Error(t, k.UnmarshalText([]byte("role")))

	_, err = Kind(0).MarshalText()
	assert.Error(t, err)
}
