// Package kvlock defines pluggable key-value adapters and an expiring
// cross-process lock built on top of them
package kvlock

// Locker runs actions under a named cross-process lock
type Locker interface {
	AcquireAndRun(name string, fn func() error, opts ...Option) error
}

// Store is the set of atomic primitives the lock manager needs from a backend.
// Get and GetAndSet return an empty string for missing keys.
type Store interface {
	SetIfAbsent(key, value string) (bool, error)
	GetAndSet(key, value string) (string, error)
	Get(key string) (string, error)
	Delete(key string) error
}

// Adapter is the generic read/write surface of a key-value backend
type Adapter interface {
	Name() string
	Read(key string) (string, bool, error)
	Write(key string, value interface{}) error
	Delete(key string) error
	Clear() error
}

// Fetch returns the stored value for key or, if the key is missing,
// the result of fallback. The fallback result is not written back.
func Fetch(a Adapter, key string, fallback func(key string) (string, error)) (string, error) {
	val, ok, err := a.Read(key)
	if err != nil || ok {
		return val, err
	}
	if fallback == nil {
		return "", nil
	}
	return fallback(key)
}

// Has reports whether key is set in the adapter
func Has(a Adapter, key string) (bool, error) {
	_, ok, err := a.Read(key)
	return ok, err
}
