// Package types provides shared type definitions for the docchunk MCP server.
//
// Document is the input unit: already-extracted UTF-8 text plus caller
// metadata. ChunkRecord is the output unit of the chunking engine:
//
//	record := types.ChunkRecord{
//	    Text:          "tail of previous chunk. Next sentence here.",
//	    SequenceIndex: 1,
//	    TotalChunks:   4,
//	    SentenceCount: 1,
//	    HasOverlap:    true,
//	    OverlapText:   &overlap,
//	}
//
// Records validate against a character ceiling counted in runes:
//
//	if err := record.Validate(1400); err != nil {
//	    return err
//	}
//
// SearchResult pairs a stored chunk with its relevance score and the
// document it came from. Relevance scores are normalized to [0, 1].
package types
