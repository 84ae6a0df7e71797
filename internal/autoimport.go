package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// IngestScanner imports backups dropped into <dataDir>/<userID>/ingest.
// Imported files move to <userID>/complete along with a per-file log; files
// that fail stay in ingest for review.
type IngestScanner struct {
	dataDir     string
	interval    time.Duration
	settleDelay time.Duration
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewIngestScanner creates a scanner over dataDir polling every interval
func NewIngestScanner(dataDir string, interval time.Duration) *IngestScanner {
	return &IngestScanner{
		dataDir:     dataDir,
		interval:    interval,
		settleDelay: 5 * time.Second,
	}
}

// Start scans once immediately, then on every tick until Stop or ctx ends
func (s *IngestScanner) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	slog.Info("Starting ingest scanner", "data_dir", s.dataDir, "interval", s.interval)

	go func() {
		defer close(s.done)
		s.ScanOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.ScanOnce(ctx)
			case <-ctx.Done():
				slog.Info("Ingest scanner stopped")
				return
			}
		}
	}()
}

// Stop cancels the scanner and waits for an in-flight scan to finish
func (s *IngestScanner) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// ScanOnce walks every user directory a single time
func (s *IngestScanner) ScanOnce(ctx context.Context) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		slog.Error("Failed to read data directory", "error", err)
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			s.scanUser(ctx, entry.Name())
		}
	}
}

func (s *IngestScanner) scanUser(ctx context.Context, userID string) {
	ingestDir := filepath.Join(s.dataDir, userID, "ingest")
	if _, err := os.Stat(ingestDir); os.IsNotExist(err) {
		if err := os.MkdirAll(ingestDir, 0755); err != nil {
			slog.Error("Failed to create ingest directory", "user_id", userID, "error", err)
		}
		return
	}

	entries, err := os.ReadDir(ingestDir)
	if err != nil {
		slog.Error("Failed to read ingest directory", "user_id", userID, "error", err)
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".log") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".xml") {
			slog.Warn("Unsupported file type in ingest directory", "user_id", userID, "file", name)
			continue
		}
		s.importFile(ctx, userID, filepath.Join(ingestDir, name))
	}
}

func (s *IngestScanner) importFile(ctx context.Context, userID, path string) {
	name := filepath.Base(path)
	if !s.settled(ctx, path) {
		slog.Debug("File still being written, skipping", "user_id", userID, "file", name)
		return
	}

	logPath := path + ".log"
	logFile, err := os.Create(logPath)
	if err != nil {
		slog.Error("Failed to create import log", "user_id", userID, "file", name, "error", err)
		return
	}
	ilog := slog.New(slog.NewTextHandler(logFile, nil)).With("user_id", userID, "file", name)

	start := time.Now()
	stats, err := s.importXML(userID, path)
	if err != nil {
		ilog.Error("Import failed, file left in ingest", "error", err, "duration", time.Since(start))
		logFile.Close()
		slog.Error("Import failed", "user_id", userID, "file", name, "error", err)
		return
	}
	ilog.Info("Import completed", "import_id", stats.ImportID, "messages", stats.Messages,
		"calls", stats.Calls, "duplicates", stats.Duplicates, "duration", time.Since(start))
	logFile.Close()

	completePath, err := s.completePath(userID, name)
	if err != nil {
		slog.Error("Failed to create complete directory", "user_id", userID, "error", err)
		return
	}
	if err := os.Rename(path, completePath); err != nil {
		slog.Error("Failed to move imported file", "user_id", userID, "error", err)
		return
	}
	if err := os.Rename(logPath, completePath+".log"); err != nil {
		slog.Warn("Failed to move import log", "user_id", userID, "error", err)
	}
	slog.Info("Import completed", "user_id", userID, "file", name, "import_id", stats.ImportID)
}

func (s *IngestScanner) importXML(userID, path string) (ImportStats, error) {
	userDB, err := GetUserDB(userID)
	if err != nil {
		return ImportStats{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ImportBackup(userDB, file, NewImportID())
}

// completePath picks a destination in the complete directory, adding a
// timestamp when the name is taken
func (s *IngestScanner) completePath(userID, name string) (string, error) {
	dir := filepath.Join(s.dataDir, userID, "complete")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		dest = filepath.Join(dir, fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), time.Now().Format("20060102_150405"), ext))
	}
	return dest, nil
}

// settled reports whether a file kept its size and mtime over settleDelay
func (s *IngestScanner) settled(ctx context.Context, path string) bool {
	before, err := os.Stat(path)
	if err != nil {
		return false
	}

	if s.settleDelay > 0 {
		select {
		case <-time.After(s.settleDelay):
		case <-ctx.Done():
			return false
		}
	}

	after, err := os.Stat(path)
	if err != nil {
		return false
	}
	return before.Size() == after.Size() && before.ModTime().Equal(after.ModTime())
}
