// Command gasdb-cli is a thin operator CLI over the database façade:
// create, init, recover and ls.
package main

import (
	"context"
	"fmt"
	"os"

	"gasdb/database"
	"gasdb/gdlog"
	"gasdb/objectstore"
	"gasdb/propertystore"

	"github.com/spf13/cobra"
)

var (
	flagDataDir        string
	flagMasterIndexKey string
	flagRootFolderID   string
	flagLogLevel       string
	flagRedisAddr      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gasdb-cli",
	Short: "gasdb - a coordination kernel for a collection-oriented document store",
	Long: `gasdb-cli drives the Master Index coordination kernel: creating and
initialising databases, recovering from a registry backup, and listing
registered collections.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "./gasdb-data", "local directory backing the embedded Badger object store")
	rootCmd.PersistentFlags().StringVar(&flagMasterIndexKey, "master-index-key", "GASDB_MASTER_INDEX", "property-store key holding the registry snapshot")
	rootCmd.PersistentFlags().StringVar(&flagRootFolderID, "root-folder-id", "collections", "object-store folder collection blobs live under")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagRedisAddr, "redis-addr", "", "Redis address for the property store and coarse lock; empty uses an in-process store")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(lsCmd)
}

func initLogging() {
	if err := gdlog.Configure(false, flagLogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to configure logger: %v\n", err)
	}
}

func openDatabase() (*database.Database, error) {
	var (
		store   propertystore.Store
		advLock propertystore.AdvisoryLock
		err     error
	)
	if flagRedisAddr != "" {
		store, err = propertystore.NewRedisStore(flagRedisAddr)
		if err != nil {
			return nil, err
		}
		advLock, err = propertystore.NewRedisLock(flagRedisAddr, flagMasterIndexKey)
		if err != nil {
			return nil, err
		}
	} else {
		store = propertystore.NewMemoryStore()
		advLock = propertystore.NewMemoryLock()
	}

	objects, err := objectstore.NewBadgerStore(flagDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store at %q: %w", flagDataDir, err)
	}

	config := database.NewConfig(
		database.WithMasterIndexKey(flagMasterIndexKey),
		database.WithRootFolderID(flagRootFolderID),
	)
	return database.New(store, advLock, objects, config), nil
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "create a new, empty database registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		return db.CreateDatabase(context.Background())
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "load an existing registry and hydrate collection handles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		return db.Initialise(context.Background())
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover <backup-blob-id>",
	Short: "rebuild the registry from a backup blob",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		names, err := db.RecoverDatabase(context.Background(), args[0])
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "list registered collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		if err := db.Initialise(context.Background()); err != nil {
			return err
		}
		for _, name := range db.ListCollections() {
			fmt.Println(name)
		}
		return nil
	},
}
