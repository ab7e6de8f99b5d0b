package iostore

import (
	"time"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetEntryStore implements the StoreManager interface.
func (m *MockStoreManager) GetEntryStore() contract.EntryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.EntryStore)
	return store
}

// GetArchiveStore implements the StoreManager interface.
func (m *MockStoreManager) GetArchiveStore() contract.ArchiveStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ArchiveStore)
	return store
}

// MockEntryStore is a mock implementation of EntryStore for testing.
type MockEntryStore struct {
	mock.Mock
}

var _ contract.EntryStore = &MockEntryStore{} // Compile-time check

// ApplyChangeSet implements the EntryStore interface.
func (m *MockEntryStore) ApplyChangeSet(changes schema.ChangeSet) error {
	args := m.Called(changes)
	return args.Error(0)
}

// ListGroups implements the EntryStore interface.
func (m *MockEntryStore) ListGroups() ([]schema.GroupRecord, error) {
	args := m.Called()
	groups, _ := args.Get(0).([]schema.GroupRecord)
	return groups, args.Error(1)
}

// ListArticles implements the EntryStore interface.
func (m *MockEntryStore) ListArticles(group string) ([]schema.ArticleRecord, error) {
	args := m.Called(group)
	articles, _ := args.Get(0).([]schema.ArticleRecord)
	return articles, args.Error(1)
}

// ListAllArticles implements the EntryStore interface.
func (m *MockEntryStore) ListAllArticles() ([]schema.ArticleRecord, error) {
	args := m.Called()
	articles, _ := args.Get(0).([]schema.ArticleRecord)
	return articles, args.Error(1)
}

// GetSyncState implements the EntryStore interface.
func (m *MockEntryStore) GetSyncState(repoKey string) (*schema.SyncState, error) {
	args := m.Called(repoKey)
	state, _ := args.Get(0).(*schema.SyncState)
	return state, args.Error(1)
}

// SetSyncState implements the EntryStore interface.
func (m *MockEntryStore) SetSyncState(state schema.SyncState) error {
	args := m.Called(state)
	return args.Error(0)
}

// GetStatus implements the EntryStore interface.
func (m *MockEntryStore) GetStatus() (schema.EntryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.EntryStatus), args.Error(1)
}

// Close implements the EntryStore interface.
func (m *MockEntryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockArchiveStore is a mock implementation of ArchiveStore for testing.
type MockArchiveStore struct {
	mock.Mock
}

var _ contract.ArchiveStore = &MockArchiveStore{} // Compile-time check

// BeginRun implements the ArchiveStore interface.
func (m *MockArchiveStore) BeginRun(label, boundary string, startTime time.Time) (int64, error) {
	args := m.Called(label, boundary, startTime)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the ArchiveStore interface.
func (m *MockArchiveStore) EndRun(runID int64, info *schema.ArchivedInfo) error {
	args := m.Called(runID, info)
	return args.Error(0)
}

// FailRun implements the ArchiveStore interface.
func (m *MockArchiveStore) FailRun(runID int64, endTime time.Time, runErr error) error {
	args := m.Called(runID, endTime, runErr)
	return args.Error(0)
}

// GetAllRuns implements the ArchiveStore interface.
func (m *MockArchiveStore) GetAllRuns() ([]schema.ArchiveRunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.ArchiveRunRecord)
	return runs, args.Error(1)
}

// GetStatus implements the ArchiveStore interface.
func (m *MockArchiveStore) GetStatus() (schema.ArchiveStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.ArchiveStatus), args.Error(1)
}

// Close implements the ArchiveStore interface.
func (m *MockArchiveStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
