package cache

import "time"

// Well-known namespace prefixes.
const (
	GeocodePrefix  = "geocode_"
	NewsDataPrefix = "news_data_"
)

// Namespace is a typed view over a Store. Keys are stored as prefix+key.
type Namespace[V any] struct {
	store  *Store
	prefix string
	ttl    time.Duration
}

// NewNamespace creates a view whose entries are fresh for ttl (ttl <= 0: forever).
func NewNamespace[V any](store *Store, prefix string, ttl time.Duration) *Namespace[V] {
	return &Namespace[V]{store: store, prefix: prefix, ttl: ttl}
}

// Key returns the full store key for key.
func (n *Namespace[V]) Key(key string) string {
	return n.prefix + key
}

// Get returns the fresh value for key.
func (n *Namespace[V]) Get(key string) (V, bool) {
	var zero V
	v, ok := n.store.get(n.Key(key), n.ttl)
	if !ok {
		return zero, false
	}
	typed, ok := v.(V)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Put stores value under key with the current time as its creation time.
func (n *Namespace[V]) Put(key string, value V) {
	n.store.put(n.Key(key), value)
}

// GetOrCompute returns the fresh value for key, or runs compute and stores
// its result. Concurrent callers missing on the same key share one compute
// call. Errors are returned and not cached. hit is true when the value came
// from the store.
func (n *Namespace[V]) GetOrCompute(key string, compute func() (V, error)) (value V, hit bool, err error) {
	if v, ok := n.Get(key); ok {
		return v, true, nil
	}

	full := n.Key(key)
	res, err, _ := n.store.flight.Do(full, func() (any, error) {
		// A previous flight may have filled the entry between Get and Do.
		if v, ok := n.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		n.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return res.(V), false, nil
}
