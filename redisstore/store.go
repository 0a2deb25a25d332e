// Package redisstore implements kvlock store and adapter based on Redis server
package redisstore

import (
	"encoding/json"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"syscall"

	"github.com/demdxx/gocast"
	"github.com/go-redis/redis"
)

// Store provides redis backed key-value primitives
type Store struct {
	activeClient redis.Cmdable
	clientPool   []redis.Cmdable

	mtx sync.Mutex
}

// New returns redis Store for redis client
func New(client redis.Cmdable) *Store {
	return &Store{activeClient: client, clientPool: []redis.Cmdable{client}}
}

// NewByURL returns redis Store object or error
// Example "redis://host1:6379,host2:6379/12?pool=10&max_retries=1&idle_cons=2"
func NewByURL(connectURL string) (*Store, error) {
	var (
		connectURLObj, err = url.Parse(connectURL)
		password           string
	)
	if err != nil {
		return nil, err
	}
	if connectURLObj.User != nil {
		password, _ = connectURLObj.User.Password()
	}
	hosts := strings.Split(connectURLObj.Host, ",")

	// the first node will be the master
	clientPool := make([]redis.Cmdable, 0, len(hosts))
	for _, addr := range hosts {
		clientPool = append(clientPool, redis.NewClient(&redis.Options{
			DB:           gocast.ToInt(strings.Trim(connectURLObj.Path, `/`)),
			Addr:         addr,
			Password:     password,
			PoolSize:     gocast.ToInt(connectURLObj.Query().Get(`pool`)),
			MaxRetries:   gocast.ToInt(connectURLObj.Query().Get(`max_retries`)),
			MinIdleConns: gocast.ToInt(connectURLObj.Query().Get(`idle_cons`)),
		}))
	}

	return &Store{
		activeClient: clientPool[0],
		clientPool:   clientPool,
	}, nil
}

// Name of the adapter
func (s *Store) Name() string { return `redis` }

// SetIfAbsent sets the key only if it does not exist (SETNX)
func (s *Store) SetIfAbsent(key, value string) (res bool, err error) {
	err = s.do(func(client redis.Cmdable) (err error) {
		res, err = client.SetNX(key, value, 0).Result()
		return err
	})
	return res, err
}

// GetAndSet swaps the value and returns the previous one (GETSET)
func (s *Store) GetAndSet(key, value string) (prev string, err error) {
	err = s.do(func(client redis.Cmdable) (err error) {
		prev, err = client.GetSet(key, value).Result()
		if err == redis.Nil {
			prev, err = ``, nil
		}
		return err
	})
	return prev, err
}

// Get value of the key or empty string
func (s *Store) Get(key string) (string, error) {
	val, _, err := s.Read(key)
	return val, err
}

// Read the raw value and report whether the key exists
func (s *Store) Read(key string) (val string, ok bool, err error) {
	err = s.do(func(client redis.Cmdable) (err error) {
		val, err = client.Get(key).Result()
		ok = err == nil
		if err == redis.Nil {
			val, err = ``, nil
		}
		return err
	})
	return val, ok, err
}

// Write the JSON encoding of the value
func (s *Store) Write(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.do(func(client redis.Cmdable) error {
		return client.Set(key, data, 0).Err()
	})
}

// Delete the key
func (s *Store) Delete(key string) error {
	return s.do(func(client redis.Cmdable) error {
		return client.Del(key).Err()
	})
}

// Clear the current database
func (s *Store) Clear() error {
	return s.do(func(client redis.Cmdable) error {
		return client.FlushDB().Err()
	})
}

// Close all clients of the pool
func (s *Store) Close() (err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, client := range s.clientPool {
		if closer, ok := client.(io.Closer); ok {
			if cerr := closer.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}
	return err
}

// do runs the command on the active client. On network errors it switches
// to the next client of the pool, each client is tried once.
func (s *Store) do(cmd func(client redis.Cmdable) error) (err error) {
	s.mtx.Lock()
	poolSize := len(s.clientPool)
	s.mtx.Unlock()
	for attempts := 0; attempts < poolSize; attempts++ {
		s.mtx.Lock()
		client := s.activeClient
		s.mtx.Unlock()
		if err = cmd(client); !isNetworkError(err) {
			return err
		}
		s.refreshActiveClient(client)
	}
	return err
}

func (s *Store) refreshActiveClient(failed redis.Cmdable) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	// already switched by a concurrent call
	if len(s.clientPool) < 2 || s.activeClient != failed {
		return
	}
	s.clientPool = append(s.clientPool[1:], s.activeClient)
	s.activeClient = s.clientPool[0]
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if err == io.EOF {
		return true
	}
	cause := err
	for {
		if unwrap, ok := cause.(interface{ Unwrap() error }); ok {
			cause = unwrap.Unwrap()
			continue
		}
		break
	}

	if cause, ok := cause.(*net.DNSError); ok && cause.Err == "no such host" {
		return true
	}

	if cause, ok := cause.(syscall.Errno); ok {
		if cause == 10061 || cause == syscall.ECONNREFUSED {
			return true
		}
	}

	if _, ok := cause.(net.Error); ok {
		return true
	}

	return false
}
