// Package searcher finds stored chunks by meaning, by keyword, or both.
//
// The searcher provides three search modes:
//   - Hybrid: vector + BM25 keyword search fused with Reciprocal Rank Fusion
//   - Vector: cosine similarity over chunk embeddings
//   - Keyword: BM25 full-text search only
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb, log)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "overlap between chunks",
//	    Limit: 10,
//	})
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s #%d (%.3f)\n",
//	        r.Rank, r.Document.Title, r.Document.SequenceIndex, r.RelevanceScore)
//	}
//
// # Reciprocal Rank Fusion
//
// In hybrid mode each side fetches twice the requested limit. A chunk's
// fused score is the sum of 1/(k + rank) over the lists it appears in,
// with k = 60 unless the request overrides it. If one side fails the
// other still answers; only a double failure is an error.
//
// Without an embedder, hybrid requests run as keyword searches.
//
// # Caching
//
// With UseCache set, responses are kept in an LRU of DefaultCacheSize
// entries for CacheTTL. InvalidateCache clears it after ingestion.
package searcher
