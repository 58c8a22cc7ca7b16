package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Verify streams the audit log and checks sequence continuity, timestamp
// order and the hash chain. Returns nil if the log is intact, or an error
// describing the first violation.
func Verify(path string) error {
	expectedPrev := genesisHash()
	var prev Record
	first := true

	return eachLine(path, func(n int, line []byte) error {
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", n, err)
		}
		if r.Seq != prev.Seq+1 {
			return fmt.Errorf("line %d: sequence gap: expected %d, got %d", n, prev.Seq+1, r.Seq)
		}
		if !first && r.Time.Before(prev.Time) {
			return fmt.Errorf("line %d: timestamp %s precedes %s", n, r.Time, prev.Time)
		}
		if r.PrevHash != expectedPrev {
			return fmt.Errorf("line %d: prev_hash mismatch: expected %s, got %s", n, short(expectedPrev), short(r.PrevHash))
		}
		if computed := computeHash(r); r.Hash != computed {
			return fmt.Errorf("line %d: hash mismatch: expected %s, got %s", n, short(computed), short(r.Hash))
		}
		expectedPrev = r.Hash
		prev = r
		first = false
		return nil
	})
}

// Tail returns the last n records from the audit log, or all of them when n
// is zero or less. Unreadable lines are skipped.
func Tail(path string, n int) ([]Record, error) {
	var lines [][]byte
	err := eachLine(path, func(_ int, line []byte) error {
		lines = append(lines, line)
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// eachLine calls fn for every non-empty line of the file, numbered from 1.
// Lines have no length limit; a single record may carry megabytes of output.
func eachLine(path string, fn func(n int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	for n := 1; ; {
		line, err := br.ReadBytes('\n')
		if line = bytes.TrimRight(line, "\n"); len(line) > 0 {
			if ferr := fn(n, line); ferr != nil {
				return ferr
			}
			n++
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read audit log: %w", err)
		}
	}
}

func short(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}
