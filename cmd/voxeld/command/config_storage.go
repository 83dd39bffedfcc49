package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-voxel/internal/storage"
)

type StorageBackend string

const (
	StorageBackendFile  StorageBackend = "file"
	StorageBackendMongo StorageBackend = "mongo"
)

type StorageConfig struct {
	Backend    StorageBackend `json:"backend"`
	Path       string         `json:"path,omitempty"`
	MongoUrl   string         `json:"mongo_url,omitempty"`
	Database   string         `json:"database,omitempty"`
	Collection string         `json:"collection,omitempty"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()

	switch c.Backend {
	case StorageBackendFile, "":
		if c.Path == "" {
			el.Add(fmt.Errorf("storage: path is required"))
			break
		}
		if _, err := os.Stat(c.Path); err != nil {
			el.Add(fmt.Errorf("storage: invalid path %q: %w", c.Path, err))
		}
	case StorageBackendMongo:
		if c.MongoUrl == "" {
			el.Add(fmt.Errorf("storage: mongo_url is required"))
		}
	default:
		el.Add(fmt.Errorf("storage: unknown backend %q", c.Backend))
	}

	return el.Err()
}

func (c *StorageConfig) BuildServerStore() (storage.ServerStore, error) {
	switch c.Backend {
	case StorageBackendFile, "":
		return storage.NewFileServerStore(c.Path)
	case StorageBackendMongo:
		var opts []storage.MongoOpt
		if c.Database != "" {
			opts = append(opts, storage.WithDatabase(c.Database))
		}
		if c.Collection != "" {
			opts = append(opts, storage.WithCollection(c.Collection))
		}
		return storage.NewMongoServerStore(c.MongoUrl, opts...)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Backend)
	}
}
