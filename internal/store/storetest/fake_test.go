package storetest

import (
	"testing"

	"github.com/memspace/memspace/internal/store"
)

// The fake must honor the same contract the postgres adapter is held to.
func TestFake_Compliance(t *testing.T) {
	Run(t, func(t *testing.T) store.Store { return New() })
}
