// Package protocol implements the marker framing the web backend parses from
// a command's stdout: a JSON document on its own lines between RESULT_START and
// RESULT_END. Anything outside the markers is ignored by readers.
package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	StartMarker = "RESULT_START"
	EndMarker   = "RESULT_END"
)

var ErrNoResult = errors.New("could not find result markers in output")

// WriteResult emits exactly one framed payload and flushes it.
func WriteResult(w io.Writer, payload any, indent bool) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	buf := bufio.NewWriter(w)
	buf.WriteString(StartMarker)
	buf.WriteByte('\n')
	// Encode already terminated the document with a newline.
	buf.Write(body.Bytes())
	buf.WriteString(EndMarker)
	buf.WriteByte('\n')
	return buf.Flush()
}

// Extract returns the trimmed bytes between the first start marker and the
// first end marker that follows it.
func Extract(output []byte) ([]byte, error) {
	start := bytes.Index(output, []byte(StartMarker))
	if start < 0 {
		return nil, ErrNoResult
	}
	rest := output[start+len(StartMarker):]
	end := bytes.Index(rest, []byte(EndMarker))
	if end < 0 {
		return nil, ErrNoResult
	}
	return bytes.TrimSpace(rest[:end]), nil
}

// ParseResult extracts the framed payload from output and decodes it into v.
func ParseResult(output []byte, v any) error {
	raw, err := Extract(output)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func ExitCode(success bool) int {
	if success {
		return 0
	}
	return 1
}
