package sqlite

import (
	"github.com/felixgeelhaar/palabras/internal/auth"
	"github.com/felixgeelhaar/palabras/internal/profile"
	"github.com/felixgeelhaar/palabras/internal/remote"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ profile.DocumentStore = (*DocumentStore)(nil)
	_ remote.BlobStore      = (*BlobStore)(nil)
	_ remote.ActivityLog    = (*ActivityStore)(nil)
	_ auth.Repository       = (*AuthStore)(nil)
)
