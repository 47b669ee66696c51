// Package state implements persistence for the security state: tracked
// sensors, alarm status and arming status.
//
// Repository is the contract the security service depends on. MemoryRepository
// keeps state in process, FileRepository snapshots it as protojson on disk,
// SQLiteRepository stores it in SQLite tables and RedisRepository in Redis keys.
// Open picks one from configuration.
package state
