package health

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// DirectoryChecker reports whether the studio directory has data.
type DirectoryChecker struct {
	ids func() []int64
}

// NewDirectoryChecker creates a checker over the directory holder.
func NewDirectoryChecker(ids func() []int64) *DirectoryChecker {
	return &DirectoryChecker{ids: ids}
}

// Name returns the checker name.
func (c *DirectoryChecker) Name() string {
	return "directory"
}

// Check fails while the studio map has never been filled. An empty map
// means views cannot resolve environment names.
func (c *DirectoryChecker) Check(ctx context.Context) error {
	if c.ids == nil || len(c.ids()) == 0 {
		return fmt.Errorf("studio directory empty")
	}
	return nil
}
