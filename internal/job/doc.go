// Package job persists generation jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, the partial
// merge Update used by the orchestrator, stats queries, heartbeat tracking,
// abandoned-job failure on restart, and the retention sweep. Job rows capture
// submission options, progress, and the terminal result or error so the API
// can answer status polls without additional state. Credential material never
// enters this package.
//
// The database is treated as transient storage for in-flight work rather
// than a long-term archive; the sweep evicts rows by age regardless of
// status. Schema changes bump the version in schema.go; users delete the
// database to adopt the new schema.
package job
