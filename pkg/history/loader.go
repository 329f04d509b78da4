// Package history reads the append-only completion log and calibrates
// estimates against it.
package history

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/planwork/pkg/model"
)

// Snapshot is a point-in-time read of the completion log.
type Snapshot []model.CompletionRecord

// WarnFunc receives malformed lines. line is 1-based.
type WarnFunc func(line int, err error)

var linePool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads JSON-lines completion records. Blank lines are skipped, a UTF-8
// BOM on the first line is stripped, and malformed lines are reported through
// warn (if non-nil) without failing the load.
func Load(r io.Reader, warn WarnFunc) (Snapshot, error) {
	br := bufio.NewReader(r)
	buf := linePool.Get().(*bytes.Buffer)
	defer linePool.Put(buf)

	var snap Snapshot
	lineNo := 0
	for {
		buf.Reset()
		for {
			chunk, isPrefix, err := br.ReadLine()
			if err == io.EOF {
				if buf.Len() == 0 {
					return snap, nil
				}
				break
			}
			if err != nil {
				return snap, fmt.Errorf("read completion log: %w", err)
			}
			buf.Write(chunk)
			if !isPrefix {
				break
			}
		}
		lineNo++

		line := buf.Bytes()
		if lineNo == 1 {
			line = bytes.TrimPrefix(line, utf8BOM)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var rec model.CompletionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			if warn != nil {
				warn(lineNo, err)
			}
			continue
		}
		snap = append(snap, rec)
	}
}

// LoadFile reads the completion log at path. A missing file is an empty
// snapshot, not an error; the log appears on first completion.
func LoadFile(path string, warn WarnFunc) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open completion log: %w", err)
	}
	defer f.Close()
	return Load(f, warn)
}
