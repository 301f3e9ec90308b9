// Package storage provides SQLite-based persistence for chunked documents.
//
// # Database Schema
//
// Tables:
//   - documents: one row per source document (external ID, content hash,
//     caller metadata as JSON, chunk settings used)
//   - chunks: one row per chunk record, unique on (document_id, sequence_index)
//   - chunks_fts: FTS5 index over chunk text, kept in sync by triggers
//   - embeddings: one float32 vector per chunk
//   - schema_version: applied migrations, compared with semver
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.docchunk/chunks.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	doc := &storage.Document{ExternalID: "handbook", ContentHash: hash}
//	if err := db.UpsertDocument(ctx, doc); err != nil {
//	    return err
//	}
//	for i := range records {
//	    if err := db.UpsertChunk(ctx, storage.FromRecord(doc.ID, &records[i])); err != nil {
//	        return err
//	    }
//	}
//
// # Transactions
//
// Replacing a document's chunks should happen atomically:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	_ = tx.DeleteChunksByDocument(ctx, doc.ID)
//	// ... UpsertChunk for each record
//
//	return tx.Commit()
//
// The pool holds a single connection, so code inside a transaction must use
// the Tx for reads as well as writes.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go) and computes cosine
// similarity in Go. Building with -tags sqlite_vec switches to
// github.com/mattn/go-sqlite3 and pushes similarity into SQL.
package storage
