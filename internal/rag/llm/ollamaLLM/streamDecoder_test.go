package ollamaLLM

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mkolsari/streamrag/internal/rag/llm"
)

func decodeAll(t *testing.T, input string) ([]string, error) {
	t.Helper()
	d := newStreamDecoder(io.NopCloser(strings.NewReader(input)))
	defer d.Close()

	var fragments []string
	for {
		text, err := d.Next()
		if err == io.EOF {
			return fragments, nil
		}
		if err != nil {
			return fragments, err
		}
		fragments = append(fragments, text)
	}
}

func TestDecoder_FragmentsThenDone(t *testing.T) {
	input := `{"response":"He"}
{"response":"llo"}
{"done":true}
`
	fragments, err := decodeAll(t, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fragments) != 2 || fragments[0] != "He" || fragments[1] != "llo" {
		t.Errorf("fragments = %v, want [He llo]", fragments)
	}
}

func TestDecoder_MalformedLineSkipped(t *testing.T) {
	input := `{"response":"a"}
not json
{"response":"b"}
{"done":true}
`
	fragments, err := decodeAll(t, input)
	if err != nil {
		t.Fatalf("malformed line must not raise, got %v", err)
	}
	if len(fragments) != 2 || fragments[0] != "a" || fragments[1] != "b" {
		t.Errorf("fragments = %v, want [a b]", fragments)
	}
}

func TestDecoder_ErrorLine(t *testing.T) {
	input := `{"response":"partial"}
{"error":"boom"}
{"response":"after"}
`
	fragments, err := decodeAll(t, input)

	var genErr *llm.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *llm.GenerationError, got %v", err)
	}
	if genErr.Message != "boom" {
		t.Errorf("message = %q, want boom", genErr.Message)
	}
	if len(fragments) != 1 || fragments[0] != "partial" {
		t.Errorf("fragments before failure = %v, want [partial]", fragments)
	}
}

func TestDecoder_NoFragmentsAfterTerminal(t *testing.T) {
	d := newStreamDecoder(io.NopCloser(strings.NewReader(`{"error":"boom"}
{"response":"late"}
`)))
	defer d.Close()

	if _, err := d.Next(); err == nil {
		t.Fatal("expected generation error")
	}
	if _, err := d.Next(); err != io.EOF {
		t.Errorf("after a terminal state Next should return io.EOF, got %v", err)
	}
}

func TestDecoder_DoneWithTrailingResponse(t *testing.T) {
	input := `{"response":"tail","done":true}
{"response":"ignored"}
`
	fragments, err := decodeAll(t, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "tail" {
		t.Errorf("fragments = %v, want [tail]", fragments)
	}
}

func TestDecoder_DataPrefixAndBlankLines(t *testing.T) {
	input := "\n" + `data: {"response":"x"}` + "\n\n" + `data:{"done":true}` + "\n"

	fragments, err := decodeAll(t, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "x" {
		t.Errorf("fragments = %v, want [x]", fragments)
	}
}

func TestDecoder_ExhaustionWithoutDoneIsClean(t *testing.T) {
	fragments, err := decodeAll(t, `{"response":"only"}`)
	if err != nil {
		t.Fatalf("stream ending without done must be a clean end, got %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "only" {
		t.Errorf("fragments = %v, want [only]", fragments)
	}
}

func TestDecoder_EmptyResponseNotEmitted(t *testing.T) {
	input := `{"response":""}
{"response":"real"}
{"done":true}
`
	fragments, err := decodeAll(t, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "real" {
		t.Errorf("fragments = %v, want [real]", fragments)
	}
}
