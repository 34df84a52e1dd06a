package accession

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultDigestSize is the number of hash bytes kept in an accession id.
const DefaultDigestSize = 7

var (
	ErrEmptyCellSet = errors.New("cell set is empty")
	ErrCollision    = errors.New("accession id collision")
)

// Service generates stable identifiers for cell sets. Implementations must be
// deterministic: the same cell ids and labelset always yield the same id.
type Service interface {
	GenerateAccessionID(cellIDs []string, labelset string) (string, error)
}

// Factory creates the Service used for a single taxonomy build. Services
// hold every key they issued, so each build gets its own.
type Factory func() Service

// NewCachedHashFactory returns a Factory producing a Cached
// HashAccessionManager with the given digest size.
func NewCachedHashFactory(digestSize int) Factory {
	return func() Service {
		return NewCached(NewHashAccessionManager(digestSize))
	}
}

// HashAccessionManager derives accession ids from a SHA-256 digest of the
// labelset and the sorted, de-duplicated cell ids. It remembers every id it
// issued and refuses to hand out the same id for two different cell sets.
type HashAccessionManager struct {
	digestSize int

	mu     sync.Mutex
	issued map[string]string
}

// NewHashAccessionManager creates a manager that keeps digestSize bytes of
// the digest. Values outside 1..32 fall back to DefaultDigestSize.
func NewHashAccessionManager(digestSize int) *HashAccessionManager {
	if digestSize <= 0 || digestSize > sha256.Size {
		digestSize = DefaultDigestSize
	}
	return &HashAccessionManager{
		digestSize: digestSize,
		issued:     make(map[string]string),
	}
}

// GenerateAccessionID implements Service.
func (m *HashAccessionManager) GenerateAccessionID(cellIDs []string, labelset string) (string, error) {
	if len(cellIDs) == 0 {
		return "", fmt.Errorf("%w: labelset %q", ErrEmptyCellSet, labelset)
	}

	key := CompositeKey(cellIDs, labelset)
	sum := sha256.Sum256([]byte(key))
	id := hex.EncodeToString(sum[:m.digestSize])

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.issued[id]; ok && prev != key {
		return "", fmt.Errorf("%w: %s (labelset %q)", ErrCollision, id, labelset)
	}
	m.issued[id] = key

	return id, nil
}

// CompositeKey builds the canonical cache and hash key for a cell set: the
// labelset followed by the sorted unique cell ids.
func CompositeKey(cellIDs []string, labelset string) string {
	ids := make([]string, len(cellIDs))
	copy(ids, cellIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var b strings.Builder
	b.WriteString(labelset)
	b.WriteByte(0x1f)
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(0x1e)
		}
		b.WriteString(id)
	}
	return b.String()
}

// Cached memoizes another Service by composite key. Concurrent requests for
// the same key share a single call. Errors are not cached.
type Cached struct {
	next Service

	cache   map[string]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

func NewCached(next Service) *Cached {
	return &Cached{
		next:  next,
		cache: make(map[string]string),
	}
}

// GenerateAccessionID implements Service.
func (c *Cached) GenerateAccessionID(cellIDs []string, labelset string) (string, error) {
	key := CompositeKey(cellIDs, labelset)

	c.cacheMu.RLock()
	if cached, ok := c.cache[key]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	result, err, _ := c.group.Do(key, func() (any, error) {
		c.cacheMu.RLock()
		if cached, ok := c.cache[key]; ok {
			c.cacheMu.RUnlock()
			return cached, nil
		}
		c.cacheMu.RUnlock()

		id, err := c.next.GenerateAccessionID(cellIDs, labelset)
		if err != nil {
			return nil, err
		}

		c.cacheMu.Lock()
		c.cache[key] = id
		c.cacheMu.Unlock()

		return id, nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}
