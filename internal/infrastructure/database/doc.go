// Package database opens the SQLite files served by the simulator backend.
//
// WeChat keeps its state in several SQLite databases (MicroMsg.db, MSG0.db,
// ...). The simulator exposes copies of such files read-only through
// /dbs, /{db}/tables and /sql, so this package offers:
//   - Open with an optional read-only mode (mode=ro)
//   - Tables, reading sqlite_master
//   - QueryCells, returning driver values untouched so storage classes survive
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "data/dbs/MicroMsg.db", ReadOnly: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	rows, err := db.QueryCells(ctx, "SELECT UserName, Remark FROM Contact")
package database
