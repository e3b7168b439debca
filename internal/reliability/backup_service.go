package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupMetadata describes the contents of one backup archive
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes one database file inside a backup
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupService archives the manager's databases into tar.gz files and
// ships them to object storage. Retention is count-based: the newest
// retainCount backups are kept.
type BackupService struct {
	storage     *StorageClient
	dataDir     string
	prefix      string
	retainCount int
	log         zerolog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(storage *StorageClient, dataDir string, retainCount int, log zerolog.Logger) *BackupService {
	return &BackupService{
		storage:     storage,
		dataDir:     dataDir,
		prefix:      "backups",
		retainCount: retainCount,
		log:         log.With().Str("service", "backup").Logger(),
	}
}

// Run creates one backup of the given database files, uploads it and
// rotates old backups. Paths must be absolute.
func (s *BackupService) Run(ctx context.Context, dbPaths map[string]string) error {
	now := time.Now().UTC()

	archivePath, meta, err := s.createArchive(dbPaths, now)
	if err != nil {
		return err
	}
	defer os.Remove(archivePath)

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open backup archive: %w", err)
	}
	defer f.Close()

	key := backupKey(s.prefix, now)
	if err := s.storage.Upload(ctx, key, f); err != nil {
		return err
	}

	s.log.Info().
		Str("key", key).
		Int("databases", len(meta.Databases)).
		Msg("Backup uploaded")

	return s.rotate(ctx)
}

// createArchive builds the tar.gz with each database plus a
// metadata.json manifest, returning the temp file path
func (s *BackupService) createArchive(dbPaths map[string]string, now time.Time) (string, *BackupMetadata, error) {
	tmp, err := os.CreateTemp(s.dataDir, "ballast-backup-*.tar.gz")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp archive: %w", err)
	}
	defer tmp.Close()

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)

	meta := &BackupMetadata{Timestamp: now}
	for name, path := range dbPaths {
		dbMeta, err := addFile(tw, name, path)
		if err != nil {
			os.Remove(tmp.Name())
			return "", nil, err
		}
		meta.Databases = append(meta.Databases, *dbMeta)
	}

	manifest, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to encode backup metadata: %w", err)
	}
	hdr := &tar.Header{
		Name:    "metadata.json",
		Mode:    0644,
		Size:    int64(len(manifest)),
		ModTime: now,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to write metadata header: %w", err)
	}
	if _, err := tw.Write(manifest); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := tw.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to finalize tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to finalize gzip: %w", err)
	}

	return tmp.Name(), meta, nil
}

// addFile streams one database file into the tar, hashing as it goes
func addFile(tw *tar.Writer, name, path string) (*DatabaseMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat database %s: %w", name, err)
	}

	filename := filepath.Base(path)
	hdr := &tar.Header{
		Name:    filename,
		Mode:    0644,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("failed to write tar header for %s: %w", name, err)
	}

	hash := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tw, hash), f); err != nil {
		return nil, fmt.Errorf("failed to archive database %s: %w", name, err)
	}

	return &DatabaseMetadata{
		Name:      name,
		Filename:  filename,
		SizeBytes: info.Size(),
		Checksum:  hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// rotate deletes backups beyond the retention count, oldest first
func (s *BackupService) rotate(ctx context.Context) error {
	if s.retainCount <= 0 {
		return nil
	}
	objects, err := s.storage.List(ctx, s.prefix)
	if err != nil {
		return err
	}
	if len(objects) <= s.retainCount {
		return nil
	}
	for _, obj := range objects[s.retainCount:] {
		if err := s.storage.Delete(ctx, obj.Key); err != nil {
			return err
		}
		s.log.Info().Str("key", obj.Key).Msg("Rotated old backup")
	}
	return nil
}
