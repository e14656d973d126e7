// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the unit persisted by the publish flow and read back by the query flow.
//
// Records are stored one JSON object per line, the layout Vertex AI Vector Search ingests from
// Cloud Storage.
package record

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/go-a2a/cms-search/internal/pool"
)

// SourceCode marks records whose sentences were supplied by the program itself.
const SourceCode = "code"

// ErrLengthMismatch is returned when sentences and embeddings are not positionally aligned.
var ErrLengthMismatch = errors.New("sentence and embedding counts differ")

// namespace scopes the name-based UUIDs derived from sentence text.
var namespace = uuid.NameSpaceOID

// Record is one sentence together with its embedding.
type Record struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Sentence  string    `json:"sentence"`
	Source    string    `json:"source"`
}

// ID returns the content-derived identifier of sentence.
//
// The same text always yields the same id, across calls and process runs.
func ID(sentence string) string {
	return uuid.NewSHA1(namespace, []byte(sentence)).String()
}

// New pairs sentences with embeddings.
//
// When the counts differ, records are built for the aligned prefix and ErrLengthMismatch is
// returned with them.
func New(sentences []string, embeddings [][]float32) ([]Record, error) {
	n := min(len(sentences), len(embeddings))
	records := make([]Record, n)
	for i := range n {
		records[i] = Record{
			ID:        ID(sentences[i]),
			Embedding: embeddings[i],
			Sentence:  sentences[i],
			Source:    SourceCode,
		}
	}

	if len(sentences) != len(embeddings) {
		return records, fmt.Errorf("%w: %d sentences, %d embeddings", ErrLengthMismatch, len(sentences), len(embeddings))
	}
	return records, nil
}

// WriteFile truncates path and writes one JSON line per record.
func WriteFile(path string, records []Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create records file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close records file: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	for i := range records {
		line, err := json.Marshal(&records[i])
		if err != nil {
			return fmt.Errorf("failed to encode record %q: %w", records[i].ID, err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("failed to write record %q: %w", records[i].ID, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush records file: %w", err)
	}
	return nil
}

// maxLineSize bounds a single JSON line; a 768-dimension record is about 16KiB.
const maxLineSize = 4 << 20

// ReadFile reads all records from a JSON-lines file, skipping blank lines.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record on line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	return records, nil
}

// Filter returns the records whose id is in ids, in file order.
func Filter(records []Record, ids []string) []Record {
	var out []Record
	for _, rec := range records {
		if slices.Contains(ids, rec.ID) {
			out = append(out, rec)
		}
	}
	return out
}

// JoinSentences joins the sentences of records with sep.
func JoinSentences(records []Record, sep string) string {
	sb := pool.String.Get()
	defer pool.String.Release(sb)

	for i, rec := range records {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(rec.Sentence)
	}
	return sb.String()
}
