package database

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PancyStudios/AppealBotGo/pkg/logger"
)

// ErrNotConnected is returned on a cache miss while MongoDB is unreachable
var ErrNotConnected = errors.New("database not connected")

// DataManagerOptions contains configuration for a DataManager
type DataManagerOptions struct {
	MaxCacheSize int
	// TTL bounds how long a cached document is served; zero keeps entries until evicted
	TTL time.Duration
}

// DefaultDataManagerOptions returns default options for DataManager
func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{
		MaxCacheSize: 1000,
		TTL:          5 * time.Minute,
	}
}

// finder is the part of *mongo.Collection the DataManager reads through
type finder interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

// cacheEntry holds a cached value with its key
type cacheEntry struct {
	key      string
	value    interface{}
	cachedAt time.Time
}

// lruCache is a size bounded cache with optional expiry
type lruCache struct {
	items map[string]*list.Element
	order *list.List
	mu    sync.Mutex
}

func newLRUCache() *lruCache {
	return &lruCache{
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

func (c *lruCache) get(key string, ttl time.Duration, now time.Time) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if ttl > 0 && now.Sub(entry.cachedAt) > ttl {
		c.order.Remove(elem)
		delete(c.items, key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.value, true
}

func (c *lruCache) put(key string, value interface{}, maxSize int, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		elem.Value = &cacheEntry{key: key, value: value, cachedAt: now}
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, value: value, cachedAt: now})

	if maxSize > 0 && c.order.Len() > maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.items, oldest.Value.(*cacheEntry).key)
			c.order.Remove(oldest)
		}
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order = list.New()
}

// DataManager provides cached read access to a MongoDB collection
type DataManager[T any] struct {
	name      string
	source    func() finder
	connected func() bool
	options   DataManagerOptions
	cache     *lruCache
	now       func() time.Time
}

// NewDataManager creates a new DataManager for a collection. The collection handle is
// resolved on every miss so a manager built while MongoDB is down starts working once
// the reconnect loop succeeds.
func NewDataManager[T any](collectionName string, db *Database, opts ...DataManagerOptions) *DataManager[T] {
	source := func() finder {
		col := db.GetCollection(collectionName)
		if col == nil {
			return nil
		}
		return col
	}
	return newDataManager[T](collectionName, source, db.Connected, opts...)
}

func newDataManager[T any](name string, source func() finder, connected func() bool, opts ...DataManagerOptions) *DataManager[T] {
	dmOptions := DefaultDataManagerOptions()
	if len(opts) > 0 {
		dmOptions = opts[0]
	}

	return &DataManager[T]{
		name:      name,
		source:    source,
		connected: connected,
		options:   dmOptions,
		cache:     newLRUCache(),
		now:       time.Now,
	}
}

// generateCacheKey creates a deterministic key from a query
func (dm *DataManager[T]) generateCacheKey(query bson.M) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, query[k]))
	}

	return fmt.Sprintf("%s:{%s}", dm.name, strings.Join(parts, ","))
}

// Get retrieves a document from cache or database. A missing document is (nil, nil)
// and is not cached.
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	cacheKey := dm.generateCacheKey(query)

	if cached, ok := dm.cache.get(cacheKey, dm.options.TTL, dm.now()); ok {
		return cached.(*T), nil
	}

	var col finder
	if dm.connected() {
		col = dm.source()
	}
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result T
	if err := col.FindOne(ctx, query).Decode(&result); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Warn(fmt.Sprintf("Ошибка чтения из коллекции %s: %v", dm.name, err), "DataManager")
		return nil, err
	}

	dm.cache.put(cacheKey, &result, dm.options.MaxCacheSize, dm.now())
	return &result, nil
}

// ClearCache clears the entire cache
func (dm *DataManager[T]) ClearCache() {
	dm.cache.clear()
}

// CacheSize returns the current cache size
func (dm *DataManager[T]) CacheSize() int {
	return dm.cache.len()
}

// PrimeCache logs that the cache is ready (caches are filled on demand)
func (dm *DataManager[T]) PrimeCache() {
	logger.System(fmt.Sprintf("Кэш для '%s' готов (макс. размер: %d, TTL: %v). Заполняется по запросу.", dm.name, dm.options.MaxCacheSize, dm.options.TTL), "DataManager")
}
