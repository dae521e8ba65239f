// Package capture stores raw backend responses so that they can be replayed
// later, e.g. to reproduce a decoding failure without access to the backend.
package capture

import (
	"errors"
	"fmt"
	"sort"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"
)

// ErrNotFound is returned by Get when no response was captured for a command.
var ErrNotFound = errors.New("capture: not found")

var responsesBucket = []byte("responses")

type Options struct {
	// Timeout bounds waiting for the file lock held by another process.
	Timeout  time.Duration
	ReadOnly bool
	// NoSync skips fsync, for tests.
	NoSync bool
}

// Store is a bbolt file holding the latest captured response per command.
type Store struct {
	bdb *bbolt.DB
}

func Open(path string, opt Options) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	bopt.ReadOnly = opt.ReadOnly
	bopt.NoSync = opt.NoSync

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	if !opt.ReadOnly {
		err = bdb.Update(func(btx *bbolt.Tx) error {
			_, err := btx.CreateBucketIfNotExists(responsesBucket)
			return err
		})
		if err != nil {
			bdb.Close()
			return nil, fmt.Errorf("capture: %w", err)
		}
	}
	return &Store{bdb: bdb}, nil
}

func (s *Store) Close() error {
	return s.bdb.Close()
}

// Put stores data as the response to command, replacing any earlier capture.
func (s *Store) Put(command string, data []byte, capturedAt time.Time) error {
	if command == "" {
		return fmt.Errorf("capture: empty command")
	}
	value := encodeRecord(nil, &Record{Command: command, CapturedAt: capturedAt, Data: data})
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		return btx.Bucket(responsesBucket).Put([]byte(command), value)
	})
}

func (s *Store) Get(command string) (*Record, error) {
	var rec *Record
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket(responsesBucket)
		if b == nil {
			return ErrNotFound
		}
		raw := b.Get(unsafeBytesFromString(command))
		if raw == nil {
			return ErrNotFound
		}
		var err error
		rec, err = decodeRecord(command, raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Commands lists captured commands in sorted order.
func (s *Store) Commands() ([]string, error) {
	var result []string
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket(responsesBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			result = append(result, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(result)
	return result, nil
}

// All loads every captured record.
func (s *Store) All() ([]*Record, error) {
	commands, err := s.Commands()
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(commands))
	for _, cmd := range commands {
		rec, err := s.Get(cmd)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
