package trigger

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/huangsam/gitnote/schema"
	"github.com/stretchr/testify/mock"
)

// MockCompacter is a mock implementation of Compacter for testing.
type MockCompacter struct {
	mock.Mock
}

var _ Compacter = &MockCompacter{} // Compile-time check

// Compact implements the Compacter interface.
func (m *MockCompacter) Compact(boundary, label string) (*schema.ArchivedInfo, error) {
	args := m.Called(boundary, label)
	info, _ := args.Get(0).(*schema.ArchivedInfo)
	return info, args.Error(1)
}

// RefName implements the Compacter interface.
func (m *MockCompacter) RefName(label string) plumbing.ReferenceName {
	return plumbing.ReferenceName("refs/heads/archived/" + label)
}
