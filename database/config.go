package database

import "time"

// Config holds Database façade configuration.
type Config struct {
	// RootFolderID is the object-store folder collection blobs live under.
	RootFolderID string

	// MasterIndexKey is the property-store key holding the registry snapshot.
	MasterIndexKey string

	// LockTimeout bounds CoarseLock acquisition; minimum 500ms.
	LockTimeout time.Duration

	// RetryAttempts and RetryDelayMs are advisory for higher layers; gasdb
	// itself does not retry registry operations beyond the lock's own
	// blocking TryAcquire.
	RetryAttempts int
	RetryDelayMs  int

	// AutoCreateCollections makes collection(name) create a missing
	// collection instead of failing.
	AutoCreateCollections bool

	// StripDisallowedCollectionNameCharacters strips rather than rejects
	// disallowed characters in collection names.
	StripDisallowedCollectionNameCharacters bool

	// BackupOnInitialise writes a backup blob during initialise() when at
	// least one collection exists.
	BackupOnInitialise bool

	// ModificationHistoryLimit bounds per-collection history length.
	ModificationHistoryLimit int

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string
}

// DefaultConfig returns the configuration a fresh Database starts with if
// the caller doesn't override anything.
func DefaultConfig() *Config {
	return &Config{
		MasterIndexKey:                           "GASDB_MASTER_INDEX",
		LockTimeout:                              30 * time.Second,
		RetryAttempts:                            3,
		RetryDelayMs:                             200,
		AutoCreateCollections:                    true,
		StripDisallowedCollectionNameCharacters:  false,
		BackupOnInitialise:                       false,
		ModificationHistoryLimit:                 100,
		LogLevel:                                 "INFO",
	}
}

// ConfigOption mutates a Config; used by the CLI layer to override defaults.
type ConfigOption func(*Config)

// WithRootFolderID sets the object-store root folder.
func WithRootFolderID(folderID string) ConfigOption {
	return func(c *Config) { c.RootFolderID = folderID }
}

// WithMasterIndexKey overrides the default property-store key.
func WithMasterIndexKey(key string) ConfigOption {
	return func(c *Config) { c.MasterIndexKey = key }
}

// WithAutoCreateCollections toggles auto-creation on collection(name).
func WithAutoCreateCollections(enabled bool) ConfigOption {
	return func(c *Config) { c.AutoCreateCollections = enabled }
}

// WithBackupOnInitialise toggles the backup blob written by initialise().
func WithBackupOnInitialise(enabled bool) ConfigOption {
	return func(c *Config) { c.BackupOnInitialise = enabled }
}

// NewConfig builds a Config from DefaultConfig with opts applied.
func NewConfig(opts ...ConfigOption) *Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return config
}
