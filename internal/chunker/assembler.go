package chunker

import "strings"

// workingChunk is an open or closed chunk produced by the assembler.
type workingChunk struct {
	text      strings.Builder
	length    int
	sentences int
	forced    bool
}

func (w *workingChunk) empty() bool {
	return w.sentences == 0
}

func (w *workingChunk) add(sentence string, n int) {
	if w.sentences > 0 {
		w.text.WriteByte(' ')
		w.length++
	}
	w.text.WriteString(sentence)
	w.length += n
	w.sentences++
}

// assembledChunk is a closed working chunk.
type assembledChunk struct {
	text      string
	sentences int
	forced    bool
}

// assembleFunc packs sentences into chunks. It is a field on Chunker so the
// fallback path can be exercised.
type assembleFunc func(sentences []string, cfg Config) ([]assembledChunk, error)

// assemble greedily packs sentences under cfg.TargetSize in one forward
// pass. A sentence over cfg.MaxSentenceSize closes the open chunk and is
// emitted as forced fragments of at most cfg.MaxSentenceSize.
func assemble(sentences []string, cfg Config) ([]assembledChunk, error) {
	chunks := make([]assembledChunk, 0, len(sentences)/2+1)
	acc := &workingChunk{}

	closeAcc := func() {
		if acc.empty() {
			return
		}
		chunks = append(chunks, assembledChunk{
			text:      acc.text.String(),
			sentences: acc.sentences,
			forced:    acc.forced,
		})
		acc = &workingChunk{}
	}

	for _, sentence := range sentences {
		n := runeLen(sentence)

		if n > cfg.MaxSentenceSize {
			closeAcc()
			for _, frag := range splitWords(sentence, cfg.MaxSentenceSize) {
				chunks = append(chunks, assembledChunk{text: frag, sentences: 1, forced: true})
			}
			continue
		}

		// ties stay in the open chunk
		if !acc.empty() && acc.length+1+n > cfg.TargetSize {
			closeAcc()
		}
		acc.add(sentence, n)
	}
	closeAcc()

	return chunks, nil
}
