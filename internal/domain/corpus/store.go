package corpus

import (
	"context"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/pkg/errors"
)

// Snapshot is an immutable view of the loaded corpus.  Every index (lexical,
// embedding) is built from exactly one Snapshot; a reload produces a new
// Snapshot and swaps it in atomically so in-flight requests never observe a
// partially-rebuilt corpus.
type Snapshot struct {
	articles []LegalArticle
	byNumber map[int]*LegalArticle
	version  uint64
}

// NewSnapshot builds a standalone Snapshot from already-parsed articles.
// Useful for constructing indexes outside the file-backed Store lifecycle.
func NewSnapshot(articles []LegalArticle) *Snapshot {
	snap := &Snapshot{
		articles: articles,
		byNumber: make(map[int]*LegalArticle, len(articles)),
		version:  1,
	}
	for i := range snap.articles {
		snap.byNumber[snap.articles[i].Number] = &snap.articles[i]
	}
	return snap
}

// Articles returns the articles in corpus order.  Callers must not mutate
// the returned slice.
func (s *Snapshot) Articles() []LegalArticle { return s.articles }

// ByNumber returns the article with the given number, or nil.
func (s *Snapshot) ByNumber(n int) *LegalArticle { return s.byNumber[n] }

// Numbers returns all article numbers in corpus order.
func (s *Snapshot) Numbers() []int {
	out := make([]int, len(s.articles))
	for i := range s.articles {
		out[i] = s.articles[i].Number
	}
	return out
}

// Len returns the article count.
func (s *Snapshot) Len() int { return len(s.articles) }

// Version increases by one on every successful reload.
func (s *Snapshot) Version() uint64 { return s.version }

// Store owns the current corpus Snapshot and its reload lifecycle.
type Store struct {
	path     string
	logger   logging.Logger
	current  atomic.Pointer[Snapshot]
	onReload []func(*Snapshot)
}

// NewStore loads the corpus file at path and returns a Store serving it.
func NewStore(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	st := &Store{path: path, logger: logger.Named("corpus")}
	if err := st.reload(1); err != nil {
		return nil, err
	}
	return st, nil
}

// Snapshot returns the current corpus view.  The returned Snapshot stays
// valid (and immutable) even if a reload happens concurrently.
func (st *Store) Snapshot() *Snapshot { return st.current.Load() }

// OnReload registers a callback invoked with the new Snapshot after every
// successful reload.  Registration is not safe after Watch has started.
func (st *Store) OnReload(fn func(*Snapshot)) {
	if fn != nil {
		st.onReload = append(st.onReload, fn)
	}
}

// Reload re-reads the corpus file and atomically swaps in the new snapshot.
// On failure the previous snapshot remains active.
func (st *Store) Reload() error {
	prev := st.current.Load()
	version := uint64(1)
	if prev != nil {
		version = prev.version + 1
	}
	return st.reload(version)
}

func (st *Store) reload(version uint64) error {
	articles, err := LoadFile(st.path)
	if err != nil {
		return err
	}

	snap := &Snapshot{
		articles: articles,
		byNumber: make(map[int]*LegalArticle, len(articles)),
		version:  version,
	}
	for i := range snap.articles {
		snap.byNumber[snap.articles[i].Number] = &snap.articles[i]
	}

	st.current.Store(snap)
	st.logger.Info("corpus loaded",
		logging.String("path", st.path),
		logging.Int("articles", len(articles)),
		logging.Int64("version", int64(version)))

	for _, fn := range st.onReload {
		fn(snap)
	}
	return nil
}

// Watch monitors the corpus file for writes and reloads on change until ctx
// is cancelled.  A reload that fails to parse keeps the previous snapshot and
// logs a warning; the watcher keeps running.
func (st *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create corpus watcher")
	}
	if err := watcher.Add(st.path); err != nil {
		watcher.Close()
		return errors.Wrap(err, errors.ErrCodeCorpusLoadFailed, "failed to watch corpus file").
			WithDetail("path=" + st.path)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := st.Reload(); err != nil {
					st.logger.Warn("corpus reload failed, keeping previous snapshot",
						logging.String("path", st.path), logging.Err(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				st.logger.Warn("corpus watcher error", logging.Err(err))
			}
		}
	}()
	return nil
}
