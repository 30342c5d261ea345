package memory

import (
	"testing"

	"github.com/marmos91/extmounts/pkg/store"
	storetesting "github.com/marmos91/extmounts/pkg/store/testing"
)

func TestMemoryStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			return New()
		},
	}
	suite.Run(t)
}
