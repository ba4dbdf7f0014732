// Command to-orderly compiles template schemas into table DDL and serves the
// template catalog over HTTP.
package main

import (
	"os"

	// register all backends with the storage factory.
	_ "github.com/TomascpMarques/to-orderly/internal/storage/all"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
