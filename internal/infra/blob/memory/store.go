// Package memory stages taxonomy dumps in process memory. The blob factory
// exposes it as the "memory" driver; tests use it to count how often the
// resolver reopens a dump.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"taxoncore/internal/blob/core"
)

type dump struct {
	info  core.Info
	body  []byte
	opens int
}

// Store implements core.Store. Staged bytes are immutable once Put returns.
type Store struct {
	mu    sync.Mutex
	dumps map[string]*dump
}

// New returns an empty store.
func New() *Store { return &Store{dumps: map[string]*dump{}} }

func (s *Store) Driver() core.Driver { return core.DriverMemory }

// cleanKey applies the same key rules as the filesystem driver so a layout
// staged here also stages on disk.
func cleanKey(key string) (string, error) {
	switch {
	case strings.TrimSpace(key) == "":
		return "", fmt.Errorf("empty key")
	case strings.Contains(key, ".."):
		return "", fmt.Errorf("invalid key contains '..'")
	case strings.HasPrefix(key, "/"):
		return "", fmt.Errorf("invalid absolute key")
	}
	return path.Clean(key), nil
}

// Put stages a dump under key. Keys are write-once.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	k, err := cleanKey(key)
	if err != nil {
		return core.Info{}, err
	}
	var buf bytes.Buffer
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(&buf, h), r); err != nil {
		return core.Info{}, fmt.Errorf("stage %s: %w", k, err)
	}
	d := &dump{
		body: buf.Bytes(),
		info: core.Info{
			Key:          k,
			Size:         int64(buf.Len()),
			ContentType:  opts.ContentType,
			ETag:         hex.EncodeToString(h.Sum(nil)),
			Metadata:     maps.Clone(opts.Metadata),
			LastModified: time.Now().UTC(),
		},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.dumps[k]; taken {
		return core.Info{}, fmt.Errorf("blob %s: %w", k, core.ErrExists)
	}
	s.dumps[k] = d
	return describe(d), nil
}

// Get opens a staged dump and counts the open.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.lookup(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	d.opens++
	return describe(d), io.NopCloser(bytes.NewReader(d.body)), nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.lookup(key)
	if err != nil {
		return core.Info{}, err
	}
	return describe(d), nil
}

// List returns staged dumps under prefix ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Info
	for k, d := range s.dumps {
		if strings.HasPrefix(k, prefix) {
			out = append(out, describe(d))
		}
	}
	slices.SortFunc(out, func(a, b core.Info) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

// Opens reports how many times Get has opened key.
func (s *Store) Opens(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.dumps[path.Clean(key)]; ok {
		return d.opens
	}
	return 0
}

// lookup requires s.mu.
func (s *Store) lookup(key string) (*dump, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	d, ok := s.dumps[k]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", k, core.ErrNotFound)
	}
	return d, nil
}

func describe(d *dump) core.Info {
	info := d.info
	info.Metadata = maps.Clone(info.Metadata)
	return info
}
