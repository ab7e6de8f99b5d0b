// Package iostore persists extracted entries and archive runs.
package iostore

import (
	"sync"

	"github.com/huangsam/gitnote/internal/contract"
)

// StoreManager manages the entry and archive stores.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	entries      contract.EntryStore
	archive      contract.ArchiveStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetEntryStore returns the EntryStore.
func (mgr *StoreManager) GetEntryStore() contract.EntryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.entries
}

// GetArchiveStore returns the ArchiveStore.
func (mgr *StoreManager) GetArchiveStore() contract.ArchiveStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.archive
}
