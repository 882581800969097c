// Package ingest indexes class attribute tokens across HTML files and
// evaluates JSONPath queries over class forests.
package ingest

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/graph"
	"github.com/agentic-research/classnav/internal/host"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// Stats summarizes one Ingest run.
type Stats struct {
	Files      int
	Attributes int
	Refs       int
}

// Engine walks files and records every class token, and every path prefix
// of it, at the location of the attribute it appears in.
type Engine struct {
	Store      RefTarget
	Extensions []string
	Log        *logrus.Logger

	stats Stats
}

func NewEngine(store RefTarget, extensions []string, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{Store: store, Extensions: extensions, Log: log}
}

// Stats returns the totals accumulated so far.
func (e *Engine) Stats() Stats { return e.stats }

// Ingest processes a file or directory.
func (e *Engine) Ingest(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return e.ingestFile(path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if host.LanguageForPath(p, e.Extensions) != host.LanguageHTML {
			return nil
		}
		if isBinaryFile(p) {
			e.Log.WithField("file", p).Debug("skipping binary file")
			return nil
		}
		return e.ingestFile(p)
	})
}

func (e *Engine) ingestFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	e.IndexText(path, string(content))
	return nil
}

// IndexText replaces whatever was recorded for file with the class tokens
// found in text.
func (e *Engine) IndexText(file, text string) {
	e.Store.DeleteFileRefs(file)

	attrs := classtree.Attributes(text)
	refs := 0
	for _, attr := range attrs {
		line, col := host.LineCol(text, attr.Value.Start)
		loc := graph.Location{File: file, Line: line, Column: col}
		for _, token := range expandTokens(attr.Text) {
			e.Store.AddRef(token, loc)
			refs++
		}
	}

	e.stats.Files++
	e.stats.Attributes += len(attrs)
	e.stats.Refs += refs
	e.Log.WithFields(logrus.Fields{"file": file, "attributes": len(attrs), "refs": refs}).Debug("indexed")
}

// expandTokens returns the distinct class paths named by value, including
// every prefix: "nav:item" contributes "nav" and "nav:item".
func expandTokens(value string) []string {
	seen := make(map[string]bool)
	var out []string
	classtree.Parse(value, nil).Walk(func(n *classtree.Node, _ int) bool {
		if !seen[n.Path] {
			seen[n.Path] = true
			out = append(out, n.Path)
		}
		return true
	})
	return out
}

// isBinaryFile reports whether the first 8KB of path contain a NUL byte.
// Unreadable files report false and fail later with a real error.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }() // read-only; close error is irrelevant

	buf := make([]byte, 8192)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}
