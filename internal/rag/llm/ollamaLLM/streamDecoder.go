package ollamaLLM

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/mkolsari/streamrag/internal/rag/llm"
)

type decodeState int

const (
	stateReading decodeState = iota
	stateDone
	stateFailed
)

// streamRecord is one line of the generation stream. Every field is optional.
type streamRecord struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// streamDecoder walks a line-oriented generation stream and yields text
// fragments. Blank lines are skipped, a "data:" event prefix is stripped, and
// lines that fail to parse are silently discarded - partial lines are an
// expected transport artifact, each line that does parse is assumed to be a
// self-contained record.
type streamDecoder struct {
	scanner *bufio.Scanner
	body    io.Closer
	state   decodeState
}

func newStreamDecoder(body io.ReadCloser) *streamDecoder {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &streamDecoder{
		scanner: scanner,
		body:    body,
	}
}

// Next returns the next non-empty fragment. It returns io.EOF on clean
// completion (a done record or stream exhaustion) and a *llm.GenerationError
// when the backend reports an error field or the transport fails mid-stream.
// After either terminal result no further input is consumed.
func (d *streamDecoder) Next() (string, error) {
	if d.state != stateReading {
		return "", io.EOF
	}

	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			line = strings.TrimSpace(rest)
		}

		var record streamRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}

		if record.Error != "" {
			d.state = stateFailed
			return "", &llm.GenerationError{Message: record.Error}
		}
		if record.Done {
			d.state = stateDone
			if record.Response != "" {
				return record.Response, nil
			}
			return "", io.EOF
		}
		if record.Response != "" {
			return record.Response, nil
		}
	}

	if err := d.scanner.Err(); err != nil {
		d.state = stateFailed
		return "", &llm.GenerationError{Message: "stream read failed: " + err.Error()}
	}

	// stream ended without a done record, treated as a clean end
	d.state = stateDone
	return "", io.EOF
}

func (d *streamDecoder) Close() error {
	return d.body.Close()
}
