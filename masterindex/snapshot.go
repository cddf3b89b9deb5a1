package masterindex

import "time"

// HistoryEntry is one bounded modification-history record for a collection.
type HistoryEntry struct {
	Operation string
	Timestamp time.Time
	Data      any
}

// RegistrySnapshot is the persisted value describing every collection in one
// database.
type RegistrySnapshot struct {
	Version             int
	LastUpdated         time.Time
	Collections         map[string]*CollectionMetadata
	ModificationHistory map[string][]HistoryEntry
}

// newEmptySnapshot builds the initial snapshot persisted by Database.createDatabase
// and by MasterIndex's first-open path.
func newEmptySnapshot() *RegistrySnapshot {
	now := time.Now().UTC()
	return &RegistrySnapshot{
		Version:             1,
		LastUpdated:         now,
		Collections:         make(map[string]*CollectionMetadata),
		ModificationHistory: make(map[string][]HistoryEntry),
	}
}

// repairShape ensures the Collections and ModificationHistory maps are
// present and Version is non-zero. History is preserved across repair:
// discarding silently-recorded history on a routine load would surprise
// callers more than carrying a possibly-stale map.
func (s *RegistrySnapshot) repairShape() {
	if s.Collections == nil {
		s.Collections = make(map[string]*CollectionMetadata)
	}
	if s.ModificationHistory == nil {
		s.ModificationHistory = make(map[string][]HistoryEntry)
	}
	if s.Version == 0 {
		s.Version = 1
	}
}

// clone returns a deep, independent copy of the snapshot so MasterIndex can
// hand out read results without aliasing its own in-memory state.
func (s *RegistrySnapshot) clone() *RegistrySnapshot {
	out := &RegistrySnapshot{
		Version:             s.Version,
		LastUpdated:         s.LastUpdated,
		Collections:         make(map[string]*CollectionMetadata, len(s.Collections)),
		ModificationHistory: make(map[string][]HistoryEntry, len(s.ModificationHistory)),
	}
	for name, meta := range s.Collections {
		out.Collections[name] = meta.Clone()
	}
	for name, entries := range s.ModificationHistory {
		cloned := make([]HistoryEntry, len(entries))
		copy(cloned, entries)
		for i := range cloned {
			cloned[i].Data = deepClonePayload(cloned[i].Data)
		}
		out.ModificationHistory[name] = cloned
	}
	return out
}
