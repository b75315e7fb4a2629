// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document loads LaTeX sources into a spliced buffer that remembers,
// for every offset, which file and line the text came from. File insertion
// commands are resolved here, before any rewriting, so that rule and
// declaration locations reported later point at real files.
//
// Implements: prd003-scanner (R4), prd004-engine (R1); docs/ARCHITECTURE § Document Layer.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/texplain/pkg/types"
)

// StringName is the file attribution used for in-memory sources.
const StringName = "<string>"

// segment maps a run of buffer text back to its origin. A segment covers the
// runes from start up to the next segment's start (or the buffer end).
type segment struct {
	start int    // rune offset in the buffer
	file  string // origin file
	line  int    // 1-based line of the segment's first rune in file
}

// Buffer holds document text together with its origin map. Offsets are rune
// offsets, matching the pattern engine. The origin map is only valid until
// rules start rewriting the text; the engine extracts locations during
// scanning and then works on the plain string.
type Buffer struct {
	runes    []rune
	segments []segment
}

// FromFile reads path as the root document.
func FromFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return newBuffer(string(data), path), nil
}

// FromString wraps in-memory text. Locations are attributed to "<string>".
func FromString(text string) *Buffer {
	return newBuffer(text, StringName)
}

func newBuffer(text, name string) *Buffer {
	return &Buffer{
		runes:    []rune(text),
		segments: []segment{{start: 0, file: name, line: 1}},
	}
}

// Text returns the current buffer contents.
func (b *Buffer) Text() string { return string(b.runes) }

// Len returns the buffer length in runes.
func (b *Buffer) Len() int { return len(b.runes) }

// segmentAt returns the index of the segment containing offset.
func (b *Buffer) segmentAt(offset int) int {
	i := len(b.segments) - 1
	for i > 0 && b.segments[i].start > offset {
		i--
	}
	return i
}

// Locate maps a rune offset to its source file and line.
func (b *Buffer) Locate(offset int) types.Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.runes) {
		offset = len(b.runes)
	}
	seg := b.segments[b.segmentAt(offset)]
	line := seg.line
	for i := seg.start; i < offset; i++ {
		if b.runes[i] == '\n' {
			line++
		}
	}
	return types.Location{File: seg.file, Line: line}
}

// splice replaces the rune span [start,end) with content attributed to file.
// Empty content drops the span.
func (b *Buffer) splice(start, end int, content []rune, file string) {
	resume := b.Locate(end)
	delta := len(content) - (end - start)

	var segs []segment
	for _, s := range b.segments {
		if s.start < start {
			segs = append(segs, s)
		}
	}
	if len(content) > 0 {
		segs = append(segs, segment{start: start, file: file, line: 1})
	}
	if end < len(b.runes) {
		segs = append(segs, segment{start: start + len(content), file: resume.File, line: resume.Line})
	}
	for _, s := range b.segments {
		if s.start > end {
			segs = append(segs, segment{start: s.start + delta, file: s.file, line: s.line})
		}
	}
	if len(segs) == 0 {
		segs = []segment{{start: 0, file: b.segments[0].file, line: 1}}
	}

	merged := make([]rune, 0, len(b.runes)+delta)
	merged = append(merged, b.runes[:start]...)
	merged = append(merged, content...)
	merged = append(merged, b.runes[end:]...)
	b.runes = merged
	b.segments = segs
}

// resolveInput appends the default extension when name has none and joins it
// to the root directory.
func resolveInput(rootDir, name, defaultExt string) string {
	if filepath.Ext(name) == "" {
		name += defaultExt
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(rootDir, name)
}

// trimJobname strips the extension from the root file name, giving the
// jobname used to locate the compiled bibliography.
func trimJobname(rootFile string) string {
	return strings.TrimSuffix(rootFile, filepath.Ext(rootFile))
}
