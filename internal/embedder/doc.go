// Package embedder turns chunk text into vector embeddings.
//
// Two kinds of provider are available. HTTPProvider talks to any
// endpoint that speaks the OpenAI embeddings format (OpenAI itself and
// Jina AI ship as presets). LocalProvider hashes word tokens into a
// fixed-size, unit-length vector and needs nothing beyond the process.
//
// # Basic Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: texts,
//	})
//
// Batches are capped at MaxBatchSize texts; Batches splits longer
// slices. Results are cached in an LRU keyed by model and the SHA-256
// of the text.
//
// # Provider Selection
//
//  1. If DOCCHUNK_EMBEDDING_PROVIDER is set, use it
//  2. Else if JINA_API_KEY is set, use Jina AI
//  3. Else if OPENAI_API_KEY is set, use OpenAI
//  4. Else use the local provider
//
// # Error Handling
//
// Transport failures, 429 and 5xx responses are retried with
// exponential backoff. Other 4xx responses fail immediately. Both
// surface as ErrProviderFailed.
package embedder
