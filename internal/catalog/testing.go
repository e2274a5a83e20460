package catalog

import (
	"github.com/stretchr/testify/mock"
)

// MockCatalog is a testify mock for the Catalog interface.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Select(f Filter) (*Selection, error) {
	args := m.Called(f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Selection), args.Error(1)
}
