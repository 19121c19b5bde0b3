package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay gives the writing process time to finish before the file is
// read. CSV drops are small; a short debounce is enough.
const settleDelay = 200 * time.Millisecond

// Watch observes the inbox directory and imports every .csv file dropped
// into it, including any already present at startup. Imported files are
// renamed with a .done suffix so a restart never re-ingests them. The
// sheet name for each batch is the file name without its extension.
func (imp *Importer) Watch(ctx context.Context, inbox string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(inbox); err != nil {
		return err
	}

	imp.logger.Info("import watcher started", slog.String("inbox", inbox))

	// Pick up files that arrived while the service was down.
	imp.importExisting(ctx, inbox)

	for {
		select {
		case <-ctx.Done():
			imp.logger.Info("import watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".csv") {
				continue
			}
			select {
			case <-time.After(settleDelay):
			case <-ctx.Done():
				return nil
			}
			imp.importFile(ctx, ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			imp.logger.Error("import watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func (imp *Importer) importExisting(ctx context.Context, inbox string) {
	entries, err := os.ReadDir(inbox)
	if err != nil {
		imp.logger.Warn("import: read inbox failed", slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		imp.importFile(ctx, filepath.Join(inbox, e.Name()))
	}
}

func (imp *Importer) importFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		// Already renamed by a previous event for the same file.
		if os.IsNotExist(err) {
			return
		}
		imp.logger.Warn("import: open failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	sheetName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	result, err := imp.ImportCSV(ctx, f, sheetName)
	f.Close()
	if err != nil {
		imp.logger.Error("import: failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	if err := os.Rename(path, path+".done"); err != nil {
		imp.logger.Warn("import: rename failed", slog.String("path", path), slog.String("error", err.Error()))
	}

	imp.logger.Info("import: file processed",
		slog.String("path", path),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated))
}
