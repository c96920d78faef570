package chunker

import (
	"strconv"

	"github.com/google/uuid"

	"kbingest/internal/domain"
)

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("kbingest/chunk"))

// ChunkID derives a stable identifier from a chunk's origin and content, so
// re-ingesting the same document overwrites existing rows instead of adding
// new ones.
func ChunkID(source string, page, index int, text string) string {
	key := source + "\x00" + strconv.Itoa(page) + "\x00" + strconv.Itoa(index) + "\x00" + text
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

func newChunk(page domain.Page, globalIdx, pageIdx int, text string) domain.Chunk {
	return domain.Chunk{
		ID:    ChunkID(page.Source, page.Number, pageIdx, text),
		Text:  text,
		Index: globalIdx,
		Metadata: domain.Metadata{
			Source:     page.Source,
			Page:       page.Number,
			TotalPages: page.Total,
			ChunkIndex: pageIdx,
		},
	}
}
