package game

import (
	"fmt"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestKindOf(t *testing.T) {
	tests := map[string]struct {
		err     error
		expKind Kind
		expMsg  string
	}{
		"validation": {
			err:     NewValidationError("Bad input", fmt.Errorf("detail")),
			expKind: KindValidation,
			expMsg:  "Bad input",
		},
		"wrapped authorization": {
			err:     fmt.Errorf("identify: %w", NewAuthorizationError("Banned")),
			expKind: KindAuthorization,
			expMsg:  "Banned",
		},
		"transient": {
			err:     NewTransientStoreError(fmt.Errorf("timeout")),
			expKind: KindTransientStore,
			expMsg:  "Server unavailable",
		},
		"plain error": {
			err:     fmt.Errorf("boom"),
			expKind: KindUnknown,
			expMsg:  "Internal error",
		},
		"nil": {
			expKind: KindUnknown,
			expMsg:  "Internal error",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "kind", KindOf(tt.err), tt.expKind)
			testutil.AssertEqual(t, "message", MessageOf(tt.err), tt.expMsg)
		})
	}
}

func TestError_Error(t *testing.T) {
	testutil.AssertEqual(t, "with cause", NewValidationError("Bad", fmt.Errorf("why")).Error(), "Bad: why")
	testutil.AssertEqual(t, "without cause", NewProtocolError("Invalid command").Error(), "Invalid command")
	testutil.AssertEqual(t, "kind string", KindNotFound.String(), "not found")
}
