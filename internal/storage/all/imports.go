// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: importing it (typically as a blank
// import from cmd/logship) runs the init functions of each backend package,
// which register their factories with internal/storage. Binaries that only
// need a subset can blank-import the individual backend packages instead.
package all

import (
	_ "logship/internal/storage/mssql"
	_ "logship/internal/storage/mysql"
	_ "logship/internal/storage/postgres"
	_ "logship/internal/storage/sqlite"
)
