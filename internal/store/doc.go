// Package store keeps one durable record per user: the serialized Google
// grant plus the cached calendar report and syllabi.
//
// The store runs on SQLite (modernc.org/sqlite, the default) or PostgreSQL
// (pgx). The schema is applied with goose from embedded migrations:
//
//	s, err := store.Open(ctx, store.DriverSQLite, "file:plannr.db", logger)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	cred, err := s.FetchCredential(ctx, "jane@uni.edu") // creates the row on first use
//
// Blobs are opaque text. The store never looks inside them.
package store
