// Package storage provides Store implementations for the postplan package.
//
// GormStore persists through GORM (SQLite for embedded use, PostgreSQL for
// shared deployments). MemoryStore keeps everything in process memory and
// suits tests and short-lived embedders.
package storage
