package masterindex

import (
	"encoding/json"
	"fmt"
	"time"

	"gasdb/gderrors"
)

// isoMillis formats t as ISO8601 preserving millisecond precision, the
// round-trip format the property store's string values use.
func isoMillis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func parseISOMillis(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000Z", s)
}

// Wire types carry an explicit "__type" discriminator in the encoded form.
// Decode reads each position of the snapshot into its fixed wire type and
// does not check the tag.
const (
	typeCollectionMetadata = "CollectionMetadata"
	typeLockLease          = "LockLease"
)

type wireLockLease struct {
	Type        string `json:"__type"`
	IsLocked    bool   `json:"isLocked"`
	LockedBy    string `json:"lockedBy"`
	LockedAt    string `json:"lockedAt"`
	LockTimeout int64  `json:"lockTimeout"`
}

type wireCollectionMetadata struct {
	Type              string         `json:"__type"`
	Name              string         `json:"name"`
	BlobID            *string        `json:"blobId"`
	Created           string         `json:"created"`
	LastUpdated       string         `json:"lastUpdated"`
	DocumentCount     int64          `json:"documentCount"`
	ModificationToken string         `json:"modificationToken"`
	LockStatus        *wireLockLease `json:"lockStatus,omitempty"`
}

type wireHistoryEntry struct {
	Operation string `json:"operation"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type wireSnapshot struct {
	Version             int                                `json:"version"`
	LastUpdated         string                             `json:"lastUpdated"`
	Collections         map[string]wireCollectionMetadata  `json:"collections"`
	ModificationHistory map[string][]wireHistoryEntry      `json:"modificationHistory"`
}

func toWireLease(l *LockLease) *wireLockLease {
	if l == nil {
		return nil
	}
	return &wireLockLease{
		Type:        typeLockLease,
		IsLocked:    l.IsLocked,
		LockedBy:    l.LockedBy,
		LockedAt:    isoMillis(l.LockedAt),
		LockTimeout: l.LockTimeout.Milliseconds(),
	}
}

func fromWireLease(w *wireLockLease) (*LockLease, error) {
	if w == nil {
		return nil, nil
	}
	lockedAt, err := parseISOMillis(w.LockedAt)
	if err != nil {
		return nil, fmt.Errorf("lockedAt: %w", err)
	}
	return &LockLease{
		IsLocked:    w.IsLocked,
		LockedBy:    w.LockedBy,
		LockedAt:    lockedAt,
		LockTimeout: time.Duration(w.LockTimeout) * time.Millisecond,
	}, nil
}

func toWireMetadata(m *CollectionMetadata) wireCollectionMetadata {
	return wireCollectionMetadata{
		Type:              typeCollectionMetadata,
		Name:              m.name,
		BlobID:            m.blobID,
		Created:           isoMillis(m.created),
		LastUpdated:       isoMillis(m.lastUpdated),
		DocumentCount:     m.documentCount,
		ModificationToken: m.modificationToken,
		LockStatus:        toWireLease(m.lockStatus),
	}
}

func fromWireMetadata(name string, w wireCollectionMetadata) (*CollectionMetadata, error) {
	created, err := parseISOMillis(w.Created)
	if err != nil {
		return nil, fmt.Errorf("collection %s created: %w", name, err)
	}
	lastUpdated, err := parseISOMillis(w.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("collection %s lastUpdated: %w", name, err)
	}
	lease, err := fromWireLease(w.LockStatus)
	if err != nil {
		return nil, fmt.Errorf("collection %s lockStatus: %w", name, err)
	}

	return &CollectionMetadata{
		name:              name,
		blobID:            w.BlobID,
		created:           created,
		lastUpdated:       lastUpdated,
		documentCount:     w.DocumentCount,
		modificationToken: w.ModificationToken,
		lockStatus:        lease,
	}, nil
}

// PropertyCodec serialises/deserialises a RegistrySnapshot to the single
// string value held in the property store, preserving Date and
// typed-instance round-trips via the wire types above.
type PropertyCodec struct{}

// NewPropertyCodec constructs a PropertyCodec. It is stateless.
func NewPropertyCodec() *PropertyCodec { return &PropertyCodec{} }

// Encode serialises snapshot to its property-store string form, refreshing
// snapshot.LastUpdated in place.
func (c *PropertyCodec) Encode(snapshot *RegistrySnapshot) (string, error) {
	snapshot.LastUpdated = time.Now().UTC()

	wire := wireSnapshot{
		Version:             snapshot.Version,
		LastUpdated:         isoMillis(snapshot.LastUpdated),
		Collections:         make(map[string]wireCollectionMetadata, len(snapshot.Collections)),
		ModificationHistory: make(map[string][]wireHistoryEntry, len(snapshot.ModificationHistory)),
	}
	for name, meta := range snapshot.Collections {
		wire.Collections[name] = toWireMetadata(meta)
	}
	for name, entries := range snapshot.ModificationHistory {
		wireEntries := make([]wireHistoryEntry, len(entries))
		for i, e := range entries {
			wireEntries[i] = wireHistoryEntry{
				Operation: e.Operation,
				Timestamp: isoMillis(e.Timestamp),
				Data:      e.Data,
			}
		}
		wire.ModificationHistory[name] = wireEntries
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return "", gderrors.NewMasterIndexError(gderrors.OpSave, err)
	}
	return string(data), nil
}

// Decode parses a property-store string value back into a RegistrySnapshot.
// Callers are responsible for distinguishing an absent key from a malformed
// value before calling Decode — Decode only ever sees a present value and
// fails with MasterIndexError("load", ...) on malformed input.
func (c *PropertyCodec) Decode(raw string) (*RegistrySnapshot, error) {
	var wire wireSnapshot
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, gderrors.NewMasterIndexError(gderrors.OpLoad, err)
	}

	lastUpdated, err := parseISOMillis(wire.LastUpdated)
	if err != nil {
		return nil, gderrors.NewMasterIndexError(gderrors.OpLoad, fmt.Errorf("lastUpdated: %w", err))
	}

	snapshot := &RegistrySnapshot{
		Version:             wire.Version,
		LastUpdated:         lastUpdated,
		Collections:         make(map[string]*CollectionMetadata, len(wire.Collections)),
		ModificationHistory: make(map[string][]HistoryEntry, len(wire.ModificationHistory)),
	}

	for name, wm := range wire.Collections {
		meta, err := fromWireMetadata(name, wm)
		if err != nil {
			return nil, gderrors.NewMasterIndexError(gderrors.OpLoad, err)
		}
		snapshot.Collections[name] = meta
	}

	for name, wireEntries := range wire.ModificationHistory {
		entries := make([]HistoryEntry, 0, len(wireEntries))
		for _, we := range wireEntries {
			ts, err := parseISOMillis(we.Timestamp)
			if err != nil {
				// History is non-fatal; drop the malformed entry rather
				// than failing the whole load.
				continue
			}
			entries = append(entries, HistoryEntry{
				Operation: we.Operation,
				Timestamp: ts,
				Data:      we.Data,
			})
		}
		snapshot.ModificationHistory[name] = entries
	}

	snapshot.repairShape()
	return snapshot, nil
}
