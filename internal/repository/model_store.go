package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"PriceCast/internal/domain"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/cache"
	applogger "PriceCast/pkg/logger"
)

const (
	ManifestFile = "model.json"
	WeightsFile  = "weights.bin"
)

// SplitLocation returns the scheme and the scheme-specific part of a model
// location. A location without "://" is a plain file path.
func SplitLocation(location string) (scheme, rest string) {
	if i := strings.Index(location, "://"); i > 0 {
		return strings.ToLower(location[:i]), location[i+3:]
	}
	return "file", location
}

// FileModelStore keeps an artifact as model.json and weights.bin inside a directory.
type FileModelStore struct {
	l *applogger.Logger
}

var _ domrepo.ModelStore = (*FileModelStore)(nil)

func NewFileModelStore(l *applogger.Logger) *FileModelStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &FileModelStore{l: l}
}

func (s *FileModelStore) dir(location string) (string, error) {
	_, dir := SplitLocation(location)
	if dir == "" {
		return "", fmt.Errorf("empty model location: %w", domain.ErrPersistence)
	}
	return dir, nil
}

// Save writes weights first and the manifest last, each via a temp file and rename,
// so a reader never sees a manifest pointing at missing weights.
func (s *FileModelStore) Save(ctx context.Context, location string, a *domrepo.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.dir(location)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w: %w", domain.ErrPersistence, err)
	}
	if err := atomicWrite(filepath.Join(dir, WeightsFile), a.Weights); err != nil {
		return err
	}
	if err := atomicWrite(filepath.Join(dir, ManifestFile), a.Manifest); err != nil {
		return err
	}
	s.l.Debug("model artifact written", applogger.String("dir", dir), applogger.Int("weight_bytes", len(a.Weights)))
	return nil
}

func (s *FileModelStore) Load(ctx context.Context, location string) (*domrepo.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.dir(location)
	if err != nil {
		return nil, err
	}
	manifest, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w: %w", domain.ErrPersistence, err)
	}
	weights, err := os.ReadFile(filepath.Join(dir, WeightsFile))
	if err != nil {
		return nil, fmt.Errorf("read weights: %w: %w", domain.ErrPersistence, err)
	}
	return &domrepo.Artifact{Manifest: manifest, Weights: weights}, nil
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w: %w", filepath.Base(path), domain.ErrPersistence, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w: %w", filepath.Base(path), domain.ErrPersistence, err)
	}
	return nil
}

// CacheModelStore keeps an artifact as one JSON envelope under a cache key.
// With a RedisCache behind it, locations look like redis://<key>.
type CacheModelStore struct {
	cache cache.Service
	l     *applogger.Logger
}

var _ domrepo.ModelStore = (*CacheModelStore)(nil)

type artifactEnvelope struct {
	Manifest []byte `json:"manifest"`
	Weights  []byte `json:"weights"`
}

func NewCacheModelStore(c cache.Service, l *applogger.Logger) *CacheModelStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CacheModelStore{cache: c, l: l}
}

func modelKey(location string) string {
	_, key := SplitLocation(location)
	return cache.GenerateKeyWithParams("model", key)
}

func (s *CacheModelStore) Save(ctx context.Context, location string, a *domrepo.Artifact) error {
	key := modelKey(location)
	if err := s.cache.Set(ctx, key, artifactEnvelope{Manifest: a.Manifest, Weights: a.Weights}, 0); err != nil {
		return fmt.Errorf("store model %s: %w: %w", key, domain.ErrPersistence, err)
	}
	s.l.Debug("model artifact stored", applogger.String("key", key))
	return nil
}

func (s *CacheModelStore) Load(ctx context.Context, location string) (*domrepo.Artifact, error) {
	key := modelKey(location)
	var env artifactEnvelope
	if err := s.cache.Get(ctx, key, &env); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("no model at %s: %w", key, domain.ErrPersistence)
		}
		return nil, fmt.Errorf("fetch model %s: %w: %w", key, domain.ErrPersistence, err)
	}
	return &domrepo.Artifact{Manifest: env.Manifest, Weights: env.Weights}, nil
}

// ModelStoreRouter dispatches on the location scheme.
type ModelStoreRouter struct {
	mu     sync.RWMutex
	stores map[string]domrepo.ModelStore
}

var _ domrepo.ModelStore = (*ModelStoreRouter)(nil)

func NewModelStoreRouter() *ModelStoreRouter {
	return &ModelStoreRouter{stores: make(map[string]domrepo.ModelStore)}
}

// Register routes scheme (e.g. "file", "redis") to store.
func (r *ModelStoreRouter) Register(scheme string, store domrepo.ModelStore) *ModelStoreRouter {
	r.mu.Lock()
	r.stores[strings.ToLower(scheme)] = store
	r.mu.Unlock()
	return r
}

func (r *ModelStoreRouter) route(location string) (domrepo.ModelStore, error) {
	scheme, _ := SplitLocation(location)
	r.mu.RLock()
	store, ok := r.stores[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no model store for scheme %q: %w", scheme, domain.ErrPersistence)
	}
	return store, nil
}

func (r *ModelStoreRouter) Save(ctx context.Context, location string, a *domrepo.Artifact) error {
	store, err := r.route(location)
	if err != nil {
		return err
	}
	return store.Save(ctx, location, a)
}

func (r *ModelStoreRouter) Load(ctx context.Context, location string) (*domrepo.Artifact, error) {
	store, err := r.route(location)
	if err != nil {
		return nil, err
	}
	return store.Load(ctx, location)
}
