package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/pixil98/go-voxel/internal/game"
)

// ServerStore persists ServerInstances. Update is the only read-modify-write
// path and is serialized per instance, so concurrent callers never lose updates.
type ServerStore interface {
	Get(ctx context.Context, id game.ServerId) (*game.ServerInstance, error)
	Update(ctx context.Context, id game.ServerId, fn func(*game.ServerInstance) error) (*game.ServerInstance, error)
	Create(ctx context.Context, si *game.ServerInstance) error
	Delete(ctx context.Context, id game.ServerId) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// ErrExists is returned by Create when the id is taken.
var ErrExists = errors.New("record already exists")

// FileServerStore is a ServerStore backed by a FileStore directory.
type FileServerStore struct {
	files *FileStore[*game.ServerInstance]
	locks *keyedMutex
}

func NewFileServerStore(path string) (*FileServerStore, error) {
	files, err := NewFileStore[*game.ServerInstance](path)
	if err != nil {
		return nil, fmt.Errorf("opening server store %q: %w", path, err)
	}
	return &FileServerStore{
		files: files,
		locks: newKeyedMutex(),
	}, nil
}

// Get returns a copy of the instance.
func (s *FileServerStore) Get(_ context.Context, id game.ServerId) (*game.ServerInstance, error) {
	si, ok := s.files.Get(string(id))
	if !ok {
		return nil, ErrNotFound
	}
	return si.Clone(), nil
}

func (s *FileServerStore) Update(_ context.Context, id game.ServerId, fn func(*game.ServerInstance) error) (*game.ServerInstance, error) {
	unlock := s.locks.Lock(string(id))
	defer unlock()

	cur, ok := s.files.Get(string(id))
	if !ok {
		return nil, ErrNotFound
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Id = id

	if err := s.files.Save(string(id), next); err != nil {
		return nil, fmt.Errorf("saving server %q: %w", id, err)
	}
	return next.Clone(), nil
}

func (s *FileServerStore) Create(_ context.Context, si *game.ServerInstance) error {
	if !ValidIdentifier(string(si.Id)) {
		return fmt.Errorf("invalid server id %q", si.Id)
	}

	unlock := s.locks.Lock(string(si.Id))
	defer unlock()

	if _, ok := s.files.Get(string(si.Id)); ok {
		return ErrExists
	}
	return s.files.Save(string(si.Id), si.Clone())
}

func (s *FileServerStore) Delete(_ context.Context, id game.ServerId) error {
	unlock := s.locks.Lock(string(id))
	defer unlock()

	return s.files.Delete(string(id))
}

func (s *FileServerStore) Count(_ context.Context) (int, error) {
	return len(s.files.GetAll()), nil
}

// Ping always succeeds; the directory was read at construction.
func (s *FileServerStore) Ping(_ context.Context) error {
	return nil
}
