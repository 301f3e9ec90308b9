package chunker

import (
	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

// enforcer injects overlap and guarantees the ceiling for assembled chunks.
type enforcer struct {
	words   int
	ceiling int
	log     logger.Logger
	stats   *Stats
}

// apply runs every chunk through overlap then ceiling validation. The
// returned records carry no sequence information yet.
func (e *enforcer) apply(chunks []assembledChunk) []types.ChunkRecord {
	records := make([]types.ChunkRecord, 0, len(chunks))
	previous := ""

	for i, chunk := range chunks {
		text := chunk.text
		var overlap string

		if i > 0 && e.words > 0 {
			if candidate := trailingWords(previous, e.words); candidate != "" {
				withOverlap := candidate + " " + text
				if n := runeLen(withOverlap); n <= e.ceiling {
					text = withOverlap
					overlap = candidate
				} else {
					e.stats.OverlapRejected++
					e.log.Debug("overlap rejected, chunk kept without context",
						"chunk", i, "length", n, "ceiling", e.ceiling)
				}
			}
		}

		if runeLen(text) <= e.ceiling {
			record := types.ChunkRecord{
				Text:          text,
				SentenceCount: chunk.sentences,
				IsForcedSplit: chunk.forced,
			}
			if overlap != "" {
				record.HasOverlap = true
				record.OverlapText = &overlap
			}
			records = append(records, record)
			previous = text
			continue
		}

		fragments := splitWords(text, e.ceiling)
		e.stats.ForcedSplits += len(fragments)
		e.log.Debug("chunk over ceiling, force splitting",
			"chunk", i, "length", runeLen(text), "ceiling", e.ceiling, "fragments", len(fragments))
		for _, frag := range fragments {
			records = append(records, types.ChunkRecord{
				Text:          frag,
				IsForcedSplit: true,
			})
		}
		previous = fragments[len(fragments)-1]
	}

	return records
}
