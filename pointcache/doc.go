// Package pointcache stores frame indexed simulation snapshots.
//
// A Cache tracks the frame range of one simulation, whether its frames are
// still valid (outdated) and whether they were baked. Frames are persisted
// through a Store:
//   - MemoryStore keeps them in process
//   - SQLiteStore keeps them in a SQLite database, one row per frame
//
// # Database Configuration
//
//   - WAL mode: readers never block the simulation writing frames
//   - synchronous=NORMAL
//   - 5-second busy timeout
//   - single connection
package pointcache
