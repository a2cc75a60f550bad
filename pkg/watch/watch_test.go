package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/mattsolo1/grove-vct/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func decomposeFixture(t *testing.T) string {
	t.Helper()
	rec, err := record.Parse([]byte(`{"id":"5d2a9c10-aaaa-bbbb-cccc-ddddeeeeffff","name":"Watched","firstMessage":"before"}`))
	require.NoError(t, err)
	dir, err := artifact.NewDecomposer(t.TempDir()).Decompose(rec, nil)
	require.NoError(t, err)
	return dir
}

func startWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("watcher never became ready")
	}
	return cancel, done
}

func TestWatcher_RecomposesOnChange(t *testing.T) {
	dir := decomposeFixture(t)
	r := artifact.NewRecomposer(t.TempDir())

	results := make(chan artifact.Outcome, 8)
	w := New(r, []string{dir}, func(o artifact.Outcome) { results <- o }).WithDebounce(50 * time.Millisecond)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	cancel, done := startWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.FirstMessageFile), []byte("after"), 0644))

	select {
	case o := <-results:
		require.NoError(t, o.Err)
		assert.Equal(t, dir, o.Unit)
		rec, err := record.ReadFile(o.Output)
		require.NoError(t, err)
		assert.Equal(t, "after", rec.Get("firstMessage").String())
	case <-time.After(5 * time.Second):
		t.Fatal("no recompose after change")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_ReportsFailures(t *testing.T) {
	dir := decomposeFixture(t)
	results := make(chan artifact.Outcome, 8)
	w := New(artifact.NewRecomposer(t.TempDir()), []string{dir}, func(o artifact.Outcome) { results <- o }).
		WithDebounce(50 * time.Millisecond)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	cancel, done := startWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.ConfigFile), []byte(`{broken`), 0644))

	select {
	case o := <-results:
		assert.True(t, artifact.IsMalformed(o.Err))
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome after change")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := New(artifact.NewRecomposer(t.TempDir()), []string{filepath.Join(t.TempDir(), "nope")}, nil)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	err := w.Run(context.Background())
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	r := artifact.NewRecomposer("/out")
	w := New(r, nil, nil)
	watched := map[string]string{"/w/bot": "bot"}

	tests := []struct {
		name string
		file string
		want bool
	}{
		{name: "artifact", file: "/w/bot/system_prompt.txt", want: true},
		{name: "temp file", file: "/w/bot/.system_prompt.txt.tmp-123", want: false},
		{name: "own output", file: "/w/bot/assistant_bot.json", want: false},
		{name: "other directory", file: "/w/other/system_prompt.txt", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := w.relevant(fsnotifyWrite(tt.file), watched)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func fsnotifyWrite(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}
