// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: blank-importing it runs the init
// functions of each backend package, which register their factories with the
// storage package. A binary that should support only a subset of backends can
// import the individual backend packages instead.
//
// Available kinds after importing this package:
//
//   - "mssql"    (default in the shipped configuration)
//   - "postgres"
//   - "mysql"
//   - "sqlite"
package all

import (
	_ "github.com/Sanjarbek1024/Demo-project/internal/storage/mssql"
	_ "github.com/Sanjarbek1024/Demo-project/internal/storage/mysql"
	_ "github.com/Sanjarbek1024/Demo-project/internal/storage/postgres"
	_ "github.com/Sanjarbek1024/Demo-project/internal/storage/sqlite"
)
