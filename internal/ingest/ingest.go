// Package ingest reads sentence files and loads them into the collection,
// one record per non-blank line, with idempotence tracked by the ledger.
package ingest

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tsukihi/ruiji/internal/collection"
	"github.com/tsukihi/ruiji/internal/ledger"
)

// Ingestor loads sentence files through the collection handler.
type Ingestor struct {
	handler   *collection.Handler
	ledger    *ledger.Ledger
	batchSize int
	logger    *zap.Logger
}

// New creates an ingestor. batchSize bounds how many sentences go into one
// insert call.
func New(handler *collection.Handler, led *ledger.Ledger, batchSize int, logger *zap.Logger) *Ingestor {
	if batchSize <= 0 {
		batchSize = 128
	}
	return &Ingestor{
		handler:   handler,
		ledger:    led,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IngestFile loads one sentence file. An unchanged file (same checksum as the
// ledger records) is skipped; a changed file has its previous records deleted
// by source and is re-inserted. Returns the number of sentences inserted,
// zero when skipped.
func (g *Ingestor) IngestFile(ctx context.Context, path string) (int64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}
	sentences, checksum, err := readSentences(abs)
	if err != nil {
		return 0, err
	}

	prev, err := g.ledger.Get(ctx, abs)
	if err != nil {
		return 0, fmt.Errorf("ledger lookup for %s: %w", abs, err)
	}
	if prev != nil && prev.Checksum == checksum {
		g.logger.Debug("source unchanged, skipping",
			zap.String("path", abs), zap.Int64("sentences", prev.Sentences))
		return 0, nil
	}
	if prev != nil {
		deleted, err := g.handler.DeleteBySource(ctx, abs)
		if err != nil {
			return 0, fmt.Errorf("replace %s: %w", abs, err)
		}
		g.logger.Info("source changed, replacing records",
			zap.String("path", abs), zap.Int64("deleted", deleted))
	}

	var total int64
	for start := 0; start < len(sentences); start += g.batchSize {
		end := start + g.batchSize
		if end > len(sentences) {
			end = len(sentences)
		}
		res, err := g.handler.InsertTexts(ctx, sentences[start:end], abs)
		if err != nil {
			return total, fmt.Errorf("ingest %s: %w", abs, err)
		}
		total += res.Count
	}

	if err := g.ledger.Put(ctx, &ledger.Entry{Path: abs, Checksum: checksum, Sentences: total}); err != nil {
		return total, fmt.Errorf("ledger update for %s: %w", abs, err)
	}
	g.logger.Info("ingested source",
		zap.String("path", abs), zap.Int64("sentences", total))
	return total, nil
}

// IngestDirectory walks dir and ingests every file matching the extension
// filter. Returns the number of files visited and sentences inserted.
func (g *Ingestor) IngestDirectory(ctx context.Context, dir string, extensions []string, recursive bool) (int, int64, error) {
	var files int
	var sentences int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if !MatchesExtension(path, extensions) {
			return nil
		}
		n, err := g.IngestFile(ctx, path)
		if err != nil {
			return err
		}
		files++
		sentences += n
		return nil
	})
	if err != nil {
		return files, sentences, fmt.Errorf("ingest directory %s: %w", dir, err)
	}
	return files, sentences, nil
}

// RemoveSource deletes all records ingested from path and forgets the ledger
// entry.
func (g *Ingestor) RemoveSource(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	deleted, err := g.handler.DeleteBySource(ctx, abs)
	if err != nil {
		return err
	}
	if err := g.ledger.Delete(ctx, abs); err != nil {
		return fmt.Errorf("ledger delete for %s: %w", abs, err)
	}
	g.logger.Info("removed source",
		zap.String("path", abs), zap.Int64("deleted", deleted))
	return nil
}

// MatchesExtension reports whether path has one of the given extensions.
// An empty filter matches everything.
func MatchesExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// readSentences returns the non-blank lines of the file and a hex SHA-256 of
// its raw contents.
func readSentences(path string) ([]string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hash := sha256.New()
	var sentences []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		hash.Write([]byte(line))
		hash.Write([]byte{'\n'})
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return sentences, hex.EncodeToString(hash.Sum(nil)), nil
}
