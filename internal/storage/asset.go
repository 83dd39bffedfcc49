package storage

import (
	"fmt"
	"regexp"

	"github.com/pixil98/go-errors"
)

const currentAssetVersion = 1

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidatingSpec is any record that can check its own invariants before it is stored.
type ValidatingSpec interface {
	Validate() error
}

// Asset is the on-disk envelope of a stored record.
type Asset[T ValidatingSpec] struct {
	Version    uint   `json:"version"`
	Identifier string `json:"id"`
	Spec       T      `json:"spec"`
}

func (a *Asset[T]) Id() string {
	return a.Identifier
}

func (a *Asset[T]) Validate() error {
	el := errors.NewErrorList()

	if a.Version == 0 {
		el.Add(fmt.Errorf("version must be set"))
	}

	if a.Identifier == "" {
		el.Add(fmt.Errorf("id must be set"))
	} else if !ValidIdentifier(a.Identifier) {
		el.Add(fmt.Errorf("id %q must be alphanumeric", a.Identifier))
	}

	el.Add(a.Spec.Validate())

	return el.Err()
}

// ValidIdentifier reports whether id can be used as a record key.
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}
