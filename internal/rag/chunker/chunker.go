package chunker

import (
	"regexp"
	"strings"

	"github.com/mkolsari/streamrag/internal/domain/commonModels"
)

//splitter - markdown aware, heading sections, hard cuts for oversized buffers

// level 2-6 headings only, a top level "# title" is treated as plain text
var headingPattern = regexp.MustCompile(`^#{2,6}\s+(.+)$`)

// Split scans text line by line and emits section-tagged chunks. A level 2-6
// heading flushes the running buffer and becomes the section label for every
// chunk after it (the heading line itself stays in the next buffer). Once the
// buffer grows past maxLen+overlap it is cut into fixed maxLen slices with no
// regard for word boundaries. Whitespace-only chunks are dropped.
func Split(text string, maxLen int, overlap int) []commonModels.Chunk {
	var chunks []commonModels.Chunk
	var buffer []string
	section := ""

	flushBuffer := func() {
		joined := strings.TrimSpace(strings.Join(buffer, "\n"))
		if joined != "" {
			chunks = append(chunks, commonModels.Chunk{Text: joined, Section: section})
		}
		buffer = buffer[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flushBuffer()
			section = strings.TrimSpace(m[1])
		}

		buffer = append(buffer, line)

		if len(strings.Join(buffer, "\n")) > maxLen+overlap {
			forceSplit(strings.Join(buffer, "\n"), maxLen, section, &chunks)
			buffer = buffer[:0]
		}
	}

	flushBuffer()
	return chunks
}

// forceSplit cuts the full buffer text into maxLen sized slices. Overlap is
// only trigger slack before the cut, no content is duplicated between slices.
func forceSplit(text string, maxLen int, section string, chunks *[]commonModels.Chunk) {
	for i := 0; i < len(text); i += maxLen {
		end := i + maxLen
		if end > len(text) {
			end = len(text)
		}
		slice := strings.TrimSpace(text[i:end])
		if slice == "" {
			continue
		}
		*chunks = append(*chunks, commonModels.Chunk{Text: slice, Section: section})
	}
}
