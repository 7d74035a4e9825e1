package asset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kasuganosora/rpg2kbattle/cache"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// ErrNotFound is returned when no tree holds the requested file.
var ErrNotFound = errors.New("asset: not found")

// Extension lists tried in order after the bare name.
var (
	ImageExts = []string{".bmp", ".png", ".xyz"}
	SoundExts = []string{".wav", ".ogg", ".mp3"}
	MusicExts = []string{".wav", ".ogg", ".mid", ".midi", ".mp3"}
)

// Directories searched for battle animation sheets.
var battleDirs = []string{"Battle", "Battle2"}

const cachePrefix = "asset:"

// Config configures a Resolver.
type Config struct {
	GameDir  string
	RTPPaths []string
	Cache    cache.Cache // optional
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// tree is the folded index of one asset root: directory -> file -> real name.
type tree struct {
	root  string
	dirs  map[string]string
	files map[string]map[string]string
}

// Resolver finds asset files case-insensitively in the game tree and then in
// each runtime package tree. Directory listings are read once per root.
type Resolver struct {
	roots  []string
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	trees map[string]*tree
}

// NewResolver creates a Resolver. Roots that do not exist are skipped at
// lookup time.
func NewResolver(cfg Config) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	var roots []string
	if cfg.GameDir != "" {
		roots = append(roots, cfg.GameDir)
	}
	for _, p := range cfg.RTPPaths {
		if p != "" {
			roots = append(roots, p)
		}
	}
	return &Resolver{
		roots:  roots,
		cache:  cfg.Cache,
		ttl:    cfg.CacheTTL,
		logger: cfg.Logger,
		trees:  make(map[string]*tree),
	}
}

// fold returns the case-folded form of s. A Caser keeps state, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Find returns the path of dir/name with the first matching extension.
func (r *Resolver) Find(ctx context.Context, dir, name string, exts ...string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("asset: empty name in %s: %w", dir, ErrNotFound)
	}
	key := cachePrefix + dir + ":" + name
	if r.cache != nil {
		if p, err := r.cache.Get(ctx, key); err == nil {
			return p, nil
		}
	}

	wantDir := fold(dir)
	wantName := fold(strings.ReplaceAll(name, `\`, "/"))
	if len(exts) == 0 {
		exts = []string{""}
	}
	for _, root := range r.roots {
		t := r.index(root)
		if t == nil {
			continue
		}
		realDir, ok := t.dirs[wantDir]
		if !ok {
			continue
		}
		files := t.files[wantDir]
		for _, ext := range exts {
			if realName, ok := files[wantName+fold(ext)]; ok {
				p := filepath.Join(t.root, realDir, realName)
				if r.cache != nil {
					if err := r.cache.Set(ctx, key, p, r.ttl); err != nil {
						r.logger.Debug("asset cache set failed", zap.String("key", key), zap.Error(err))
					}
				}
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("asset: %s/%s: %w", dir, name, ErrNotFound)
}

// FindBattleAnimation looks an animation sheet up in Battle, then Battle2.
func (r *Resolver) FindBattleAnimation(ctx context.Context, name string) (string, error) {
	for _, dir := range battleDirs {
		p, err := r.Find(ctx, dir, name, ImageExts...)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("asset: battle animation %s: %w", name, ErrNotFound)
}

func (r *Resolver) FindSound(ctx context.Context, name string) (string, error) {
	return r.Find(ctx, "Sound", name, SoundExts...)
}

func (r *Resolver) FindMusic(ctx context.Context, name string) (string, error) {
	return r.Find(ctx, "Music", name, MusicExts...)
}

// Reset drops the directory index. Cached lookups expire on their own.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.trees = make(map[string]*tree)
	r.mu.Unlock()
}

// index returns the folded listing of root, reading it on first use.
// Returns nil when root cannot be read.
func (r *Resolver) index(root string) *tree {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trees[root]; ok {
		return t
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		r.logger.Warn("asset root unreadable", zap.String("root", root), zap.Error(err))
		r.trees[root] = nil
		return nil
	}
	t := &tree{
		root:  root,
		dirs:  make(map[string]string),
		files: make(map[string]map[string]string),
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		key := fold(e.Name())
		t.dirs[key] = e.Name()
		files := make(map[string]string)
		sub, err := os.ReadDir(filepath.Join(root, e.Name()))
		if err != nil {
			r.logger.Warn("asset directory unreadable",
				zap.String("root", root), zap.String("dir", e.Name()), zap.Error(err))
		}
		for _, f := range sub {
			if !f.IsDir() {
				files[fold(f.Name())] = f.Name()
			}
		}
		t.files[key] = files
	}
	r.trees[root] = t
	return t
}
