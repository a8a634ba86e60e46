package engine

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"snappurge/cluster"
	"snappurge/imageprocessor"
	"snappurge/testsupport"
	"snappurge/types"
)

var markers = testsupport.MarkerHasher{Table: map[uint8]types.Fingerprint{
	10: 0b000000,
	20: 0b000111,
	30: 0b111111,
	40: 0xFFFFFFFFFFFFFFFF,
}}

func newTestEngine(fsys afero.Fs, hasher imageprocessor.Hasher) *Engine {
	return New(Options{Fs: fsys, Hasher: hasher, ScanWorkers: 2, CompareWorkers: 2})
}

func writeMarkers(t *testing.T, fsys afero.Fs, files map[string]uint8) {
	t.Helper()
	for path, marker := range files {
		testsupport.WriteFile(t, fsys, path, testsupport.MarkerImage(t, marker))
	}
}

func TestFindDuplicatesExactCopies(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{
		"/photos/a.png": 10,
		"/photos/b.png": 10,
		"/photos/c.png": 10,
		"/photos/d.png": 40,
	})

	outcome := newTestEngine(fsys, markers).FindDuplicates(context.Background(), Config{Root: "/photos", Strictness: MaxStrictness})
	if outcome.Status != StatusSuccess {
		t.Fatalf("status = %s, err = %v", outcome.Status, outcome.Err)
	}
	want := []types.SimilarityGroup{{Representative: 0, Paths: []string{
		filepath.Join("/photos", "a.png"),
		filepath.Join("/photos", "b.png"),
		filepath.Join("/photos", "c.png"),
	}}}
	if !reflect.DeepEqual(outcome.Groups, want) {
		t.Fatalf("groups = %+v", outcome.Groups)
	}
	if outcome.Stats.Hashed != 4 || len(outcome.Records) != 4 {
		t.Fatalf("stats = %+v, records = %d", outcome.Stats, len(outcome.Records))
	}
	if outcome.FinishedAt.Before(outcome.StartedAt) {
		t.Fatal("finish time precedes start time")
	}
}

func TestFindDuplicatesTransitiveGroup(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{
		"/p/a.png": 10,
		"/p/b.png": 20,
		"/p/c.png": 30,
	})
	e := newTestEngine(fsys, markers)

	// strictness 19 -> threshold 1 -> distance 3: a~b and b~c, so all three group
	outcome := e.FindDuplicates(context.Background(), Config{Root: "/p", Strictness: 19})
	if outcome.Status != StatusSuccess || len(outcome.Groups) != 1 || len(outcome.Groups[0].Paths) != 3 {
		t.Fatalf("outcome = %+v", outcome)
	}

	// strictness 20 -> exact only
	outcome = e.FindDuplicates(context.Background(), Config{Root: "/p", Strictness: 20})
	if outcome.Status != StatusSuccess || len(outcome.Groups) != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestFindDuplicatesDisjointImages(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{
		"/p/white.png": 10,
		"/p/black.png": 40,
	})

	// loosest setting still cannot bridge 64 differing bits
	outcome := newTestEngine(fsys, markers).FindDuplicates(context.Background(), Config{Root: "/p", Strictness: MinStrictness})
	if outcome.Status != StatusSuccess || len(outcome.Groups) != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestFindDuplicatesMixedFailure(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{
		"/p/one.png": 10,
		"/p/two.png": 10,
	})
	testsupport.WriteFile(t, fsys, "/p/broken.gif", []byte("GIF89a garbage"))

	outcome := newTestEngine(fsys, markers).FindDuplicates(context.Background(), Config{Root: "/p", Strictness: MaxStrictness})
	if outcome.Status != StatusSuccess {
		t.Fatalf("status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if len(outcome.Groups) != 1 || len(outcome.Groups[0].Paths) != 2 {
		t.Fatalf("groups = %+v", outcome.Groups)
	}
	if outcome.Stats.Failed != 1 {
		t.Fatalf("stats = %+v", outcome.Stats)
	}
}

func TestRunProgressClosesBeforeOutcome(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := map[string]uint8{}
	for i := 0; i < 9; i++ {
		files[filepath.Join("/p", string(rune('a'+i))+".png")] = 10
	}
	writeMarkers(t, fsys, files)

	run, err := newTestEngine(fsys, markers).Start(context.Background(), Config{Root: "/p", Strictness: DefaultStrictness})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var values []int
	for p := range run.Progress() {
		values = append(values, p)
	}
	outcome := run.Wait()
	if outcome.Status != StatusSuccess {
		t.Fatalf("status = %s", outcome.Status)
	}
	if len(values) == 0 || values[len(values)-1] != 100 {
		t.Fatalf("progress = %v", values)
	}
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			t.Fatalf("progress not strictly increasing: %v", values)
		}
	}
}

func TestStartRejectsSecondRun(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{"/p/a.png": 10, "/p/b.png": 10})
	hasher := newBlockingHasher(markers)
	e := newTestEngine(fsys, hasher)

	first, err := e.Start(context.Background(), Config{Root: "/p", Strictness: MaxStrictness})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	hasher.waitStarted(t)

	if _, err := e.Start(context.Background(), Config{Root: "/p", Strictness: MaxStrictness}); !errors.Is(err, ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}

	hasher.release()
	if outcome := first.Wait(); outcome.Status != StatusSuccess {
		t.Fatalf("first run status = %s", outcome.Status)
	}

	// the slot is free as soon as Wait returns
	second, err := e.Start(context.Background(), Config{Root: "/p", Strictness: MaxStrictness})
	if err != nil {
		t.Fatalf("Start after completion: %v", err)
	}
	if outcome := second.Wait(); outcome.Status != StatusSuccess || len(outcome.Groups) != 1 {
		t.Fatalf("second run outcome = %+v", outcome)
	}
}

func TestRunCancel(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{"/p/a.png": 10, "/p/b.png": 10, "/p/c.png": 10})
	hasher := newBlockingHasher(markers)

	run, err := newTestEngine(fsys, hasher).Start(context.Background(), Config{Root: "/p", Strictness: MaxStrictness})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	hasher.waitStarted(t)

	run.Cancel()
	run.Cancel()
	hasher.release()

	outcome := run.Wait()
	if outcome.Status != StatusCancelled {
		t.Fatalf("status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if outcome.Groups != nil || outcome.Err != nil {
		t.Fatalf("cancelled outcome carries data: %+v", outcome)
	}

	// late cancel is a no-op
	run.Cancel()
	if again := run.Wait(); again.Status != StatusCancelled {
		t.Fatalf("outcome changed after late cancel: %s", again.Status)
	}
}

func TestRunCancelledWhileClustering(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{"/p/a.png": 10, "/p/b.png": 10, "/p/c.png": 20})
	e := newTestEngine(fsys, markers)

	clustering := make(chan struct{})
	e.group = func(ctx context.Context, index types.Index, threshold int, opts ...cluster.Option) ([]types.SimilarityGroup, error) {
		close(clustering)
		<-ctx.Done()
		return cluster.Cluster(ctx, index, threshold, opts...)
	}

	run, err := e.Start(context.Background(), Config{Root: "/p", Strictness: DefaultStrictness})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-clustering:
	case <-time.After(5 * time.Second):
		t.Fatal("clustering never started")
	}
	run.Cancel()

	outcome := run.Wait()
	if outcome.Status != StatusCancelled {
		t.Fatalf("status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if len(outcome.Groups) != 0 || outcome.Records != nil {
		t.Fatalf("cancelled outcome carries results: %+v", outcome)
	}
	if outcome.Stats.Hashed != 3 {
		t.Fatalf("scan did not complete before cancel: %+v", outcome.Stats)
	}
}

func TestRunCancelledByParentContext(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{"/p/a.png": 10, "/p/b.png": 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := newTestEngine(fsys, markers).FindDuplicates(ctx, Config{Root: "/p", Strictness: MaxStrictness})
	if outcome.Status != StatusCancelled || len(outcome.Groups) != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestRunDeadlineMapsToCancelled(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{"/p/a.png": 10})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	outcome := newTestEngine(fsys, markers).FindDuplicates(ctx, Config{Root: "/p"})
	if outcome.Status != StatusCancelled {
		t.Fatalf("status = %s", outcome.Status)
	}
}

func TestFindDuplicatesMissingRootFails(t *testing.T) {
	outcome := newTestEngine(afero.NewMemMapFs(), markers).FindDuplicates(context.Background(), Config{Root: "/nowhere", Strictness: 10})
	if outcome.Status != StatusFailed || outcome.Err == nil {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Groups != nil {
		t.Fatal("failed outcome carries groups")
	}
}

func TestStartValidatesStrictness(t *testing.T) {
	e := newTestEngine(afero.NewMemMapFs(), markers)
	for _, s := range []int{-1, 21} {
		if _, err := e.Start(context.Background(), Config{Root: "/", Strictness: s}); !errors.Is(err, ErrInvalidStrictness) {
			t.Errorf("strictness %d: expected ErrInvalidStrictness, got %v", s, err)
		}
	}
}

func TestRunIdentity(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeMarkers(t, fsys, map[string]uint8{"/p/a.png": 10})
	run, err := newTestEngine(fsys, markers).Start(context.Background(), Config{Root: "/p", Recursive: true, Strictness: 3})
	if err != nil {
		t.Fatal(err)
	}
	run.Wait()
	if run.ID().String() == "" || run.Config().Strictness != 3 || !run.Config().Recursive {
		t.Fatalf("unexpected run identity: %s %+v", run.ID(), run.Config())
	}
	select {
	case <-run.Done():
	default:
		t.Fatal("Done not closed after Wait")
	}
}

// blockingHasher holds every Hash call until release is called
type blockingHasher struct {
	inner    imageprocessor.Hasher
	started  chan struct{}
	gate     chan struct{}
	once     sync.Once
	released sync.Once
}

func newBlockingHasher(inner imageprocessor.Hasher) *blockingHasher {
	return &blockingHasher{inner: inner, started: make(chan struct{}), gate: make(chan struct{})}
}

func (h *blockingHasher) Name() string { return "blocking" }

func (h *blockingHasher) Hash(img image.Image) (types.Fingerprint, error) {
	h.once.Do(func() { close(h.started) })
	<-h.gate
	return h.inner.Hash(img)
}

func (h *blockingHasher) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-h.started:
	case <-time.After(5 * time.Second):
		t.Fatal("hasher never called")
	}
}

func (h *blockingHasher) release() {
	h.released.Do(func() { close(h.gate) })
}
