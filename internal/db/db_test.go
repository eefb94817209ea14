package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjdini/jaer-sub001/internal/template"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustBuiltin(t *testing.T, name string) *template.Template {
	t.Helper()
	tmpl, err := template.Builtin(name, template.DefaultMaxSegments)
	require.NoError(t, err)
	return tmpl
}

func TestOpenDBMigrates(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestMigrateDownAndUp(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	_, err = db.Exec(`SELECT count(*) FROM tracking_runs`)
	assert.Error(t, err, "runs table dropped")

	require.NoError(t, db.MigrateUp())
	_, err = db.Exec(`SELECT count(*) FROM tracking_runs`)
	assert.NoError(t, err)
}

func TestOpenDBInMemory(t *testing.T) {
	t.Parallel()

	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewTemplateStore(db)
	_, err = store.Save(mustBuiltin(t, "triangle"), "builtin")
	require.NoError(t, err)
	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTemplateStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewTemplateStore(openTestDB(t))
	box := mustBuiltin(t, "box")

	rec, err := store.Save(box, "builtin")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.TemplateID)
	assert.Equal(t, "box", rec.Name)
	assert.Equal(t, box.Len(), rec.SegmentCount)

	got, err := store.Load(rec.TemplateID, template.DefaultMaxSegments)
	require.NoError(t, err)
	assert.Equal(t, "box", got.Name)
	if diff := cmp.Diff(box.Segments(), got.Segments()); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateStoreNotFound(t *testing.T) {
	t.Parallel()

	store := NewTemplateStore(openTestDB(t))
	_, err := store.Load("missing", template.DefaultMaxSegments)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	_, err = store.LoadLatest("nothing", template.DefaultMaxSegments)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	assert.ErrorIs(t, store.Delete("missing"), ErrTemplateNotFound)
}

func TestTemplateStoreListAndLatest(t *testing.T) {
	t.Parallel()

	store := NewTemplateStore(openTestDB(t))
	for _, name := range []string{"box", "cross", "horizon"} {
		_, err := store.Save(mustBuiltin(t, name), "builtin")
		require.NoError(t, err)
	}
	captured := template.FromSegments("captured", 10, []template.LineSegment{
		template.NewLineSegment(-0.5, 0, 0.5, 0),
	})
	rec, err := store.Save(captured, "capture")
	require.NoError(t, err)

	list, err := store.List()
	require.NoError(t, err)
	var names []string
	for _, r := range list {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{"box", "cross", "horizon", "captured"}, names)

	got, err := store.LoadLatest("captured", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())

	require.NoError(t, store.Delete(rec.TemplateID))
	_, err = store.Load(rec.TemplateID, 10)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRunStoreLifecycle(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	runs := NewRunStore(db)

	r := &Run{Source: "text", TemplateName: "box", Mode: "full_projective"}
	require.NoError(t, runs.Start(r))
	assert.NotEmpty(t, r.RunID)
	assert.NotZero(t, r.StartedAtNs)

	r.Events = 1000
	r.Applied = 700
	r.TooFar = 200
	r.NoMatch = 100
	r.Folds = 8
	r.MeanAbsErr = 0.004
	require.NoError(t, runs.Finish(r))

	got, err := runs.Get(r.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	assert.Error(t, runs.Finish(&Run{RunID: "missing"}))
	_, err = runs.Get("missing")
	assert.Error(t, err)
}

func TestRunStoreList(t *testing.T) {
	t.Parallel()

	runs := NewRunStore(openTestDB(t))
	for i := 0; i < 3; i++ {
		require.NoError(t, runs.Start(&Run{
			Source:       "udp",
			TemplateName: "box",
			Mode:         "no_shear",
			StartedAtNs:  int64(1000 + i),
		}))
	}

	all, err := runs.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1002), all[0].StartedAtNs)

	two, err := runs.List(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestDeletingTemplateKeepsRun(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	templates := NewTemplateStore(db)
	runs := NewRunStore(db)

	rec, err := templates.Save(mustBuiltin(t, "box"), "builtin")
	require.NoError(t, err)
	r := &Run{Source: "pcap", TemplateID: rec.TemplateID, TemplateName: rec.Name, Mode: "rotation_scale"}
	require.NoError(t, runs.Start(r))

	require.NoError(t, templates.Delete(rec.TemplateID))

	got, err := runs.Get(r.RunID)
	require.NoError(t, err)
	assert.Empty(t, got.TemplateID)
	assert.Equal(t, "box", got.TemplateName)
}
