package database

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

const backupLayout = "20060102_150405"

var backupRe = regexp.MustCompile(`^(\d{8}_\d{6})_spotprice\.db\.zip$`)

func (d *Database) backupDir() string {
	return filepath.Join(filepath.Dir(d.path), "backups")
}

// Backup vacuums the database into a timestamped copy and zips it. It
// returns the path of the zip file.
func (d *Database) Backup(ctx context.Context) (string, error) {
	dir := d.backupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	snapshot := filepath.Join(dir, fmt.Sprintf("%s_spotprice.db", time.Now().Format(backupLayout)))
	if _, err := d.write.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return "", fmt.Errorf("vacuuming database into '%s': %w", snapshot, err)
	}
	defer func() {
		if err := os.Remove(snapshot); err != nil {
			d.logger.Warn("could not remove uncompressed backup", slog.String("path", snapshot), slog.Any("error", err))
		}
	}()

	zipPath := snapshot + ".zip"
	if err := zipFile(snapshot, zipPath, filepath.Base(d.path)); err != nil {
		_ = os.Remove(zipPath)
		return "", err
	}

	d.logger.Info("database backup complete", slog.String("filename", zipPath))
	return zipPath, nil
}

func zipFile(src, dest, entryName string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open database backup for compression: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("get file info: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("create zip header: %w", err)
	}
	header.Name = entryName
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create zip file entry: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("write database to zip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip file: %w", err)
	}
	return out.Close()
}

// PurgeBackups removes backups older than the retention period and returns
// how many were removed. Zero or negative retention keeps everything.
func (d *Database) PurgeBackups(retentionDays int, now time.Time) (int, error) {
	if retentionDays < 1 {
		return 0, nil
	}
	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)

	dir := d.backupDir()
	files, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read backup directory: %w", err)
	}

	removed := 0
	for _, file := range files {
		m := backupRe.FindStringSubmatch(file.Name())
		if m == nil {
			continue
		}
		t, err := time.ParseInLocation(backupLayout, m[1], time.Local)
		if err != nil {
			d.logger.Debug("failed to parse backup timestamp", slog.String("filename", file.Name()), slog.Any("error", err))
			continue
		}
		if t.Before(cutoff) {
			p := filepath.Join(dir, file.Name())
			if err := os.Remove(p); err != nil {
				return removed, fmt.Errorf("remove old backup '%s': %w", p, err)
			}
			removed++
		}
	}

	d.logger.Info("backup purge complete", slog.Int("removed", removed))
	return removed, nil
}
