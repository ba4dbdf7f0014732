// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package. Importing it makes these kinds
// available at runtime:
//
//   - "sqlite"   (internal/storage/sqlite)
//   - "postgres" (internal/storage/postgres)
//
// Typical usage (in cmd/to-orderly or a similar wiring layer):
//
//	import (
//	    _ "github.com/TomascpMarques/to-orderly/internal/storage/all"
//
//	    "github.com/TomascpMarques/to-orderly/internal/storage"
//	)
//
//	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
//
// A binary that needs only one backend can blank-import that backend's
// package instead.
package all

import (
	_ "github.com/TomascpMarques/to-orderly/internal/storage/postgres"
	_ "github.com/TomascpMarques/to-orderly/internal/storage/sqlite"
)
