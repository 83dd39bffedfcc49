package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/pixil98/go-voxel/internal/game"
)

const (
	DefaultMongoDatabase   = "voxel"
	DefaultMongoCollection = "servers"
	defaultMongoTimeout    = 10 * time.Second
)

// MongoServerStore is a ServerStore backed by a MongoDB collection.
// mgo has no context support, so ctx is only checked before each call.
type MongoServerStore struct {
	session    *mgo.Session
	database   string
	collection string
	locks      *keyedMutex
}

type MongoOpt func(*MongoServerStore)

func WithDatabase(name string) MongoOpt {
	return func(m *MongoServerStore) {
		m.database = name
	}
}

func WithCollection(name string) MongoOpt {
	return func(m *MongoServerStore) {
		m.collection = name
	}
}

func NewMongoServerStore(url string, opts ...MongoOpt) (*MongoServerStore, error) {
	session, err := mgo.DialWithTimeout(url, defaultMongoTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing mongodb: %w", err)
	}
	session.SetMode(mgo.Monotonic, true)

	m := &MongoServerStore{
		session:    session,
		database:   DefaultMongoDatabase,
		collection: DefaultMongoCollection,
		locks:      newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// with runs fn against a copied session so concurrent callers do not share a socket.
func (m *MongoServerStore) with(ctx context.Context, fn func(*mgo.Collection) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.session.Copy()
	defer s.Close()
	return fn(s.DB(m.database).C(m.collection))
}

func mapMongoErr(err error) error {
	if errors.Is(err, mgo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (m *MongoServerStore) Get(ctx context.Context, id game.ServerId) (*game.ServerInstance, error) {
	var si game.ServerInstance
	err := m.with(ctx, func(c *mgo.Collection) error {
		return c.FindId(string(id)).One(&si)
	})
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return &si, nil
}

// Update holds the per-instance lock across findOne and updateOne. This process
// must be the only writer of the instance.
func (m *MongoServerStore) Update(ctx context.Context, id game.ServerId, fn func(*game.ServerInstance) error) (*game.ServerInstance, error) {
	unlock := m.locks.Lock(string(id))
	defer unlock()

	var next *game.ServerInstance
	err := m.with(ctx, func(c *mgo.Collection) error {
		var si game.ServerInstance
		if err := c.FindId(string(id)).One(&si); err != nil {
			return err
		}
		if err := fn(&si); err != nil {
			return err
		}
		si.Id = id
		if err := si.Validate(); err != nil {
			return fmt.Errorf("validating server %q: %w", id, err)
		}
		if err := c.UpdateId(string(id), &si); err != nil {
			return fmt.Errorf("updating server %q: %w", id, err)
		}
		next = &si
		return nil
	})
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return next, nil
}

func (m *MongoServerStore) Create(ctx context.Context, si *game.ServerInstance) error {
	if !ValidIdentifier(string(si.Id)) {
		return fmt.Errorf("invalid server id %q", si.Id)
	}
	if err := si.Validate(); err != nil {
		return fmt.Errorf("validating server %q: %w", si.Id, err)
	}
	return m.with(ctx, func(c *mgo.Collection) error {
		err := c.Insert(si)
		if mgo.IsDup(err) {
			return ErrExists
		}
		return err
	})
}

func (m *MongoServerStore) Delete(ctx context.Context, id game.ServerId) error {
	err := m.with(ctx, func(c *mgo.Collection) error {
		return c.RemoveId(string(id))
	})
	return mapMongoErr(err)
}

func (m *MongoServerStore) Count(ctx context.Context) (int, error) {
	var n int
	err := m.with(ctx, func(c *mgo.Collection) error {
		var err error
		n, err = c.Find(bson.M{}).Count()
		return err
	})
	return n, err
}

func (m *MongoServerStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.session.Copy()
	defer s.Close()
	return s.Ping()
}

// Close releases the root session.
func (m *MongoServerStore) Close() {
	m.session.Close()
}
