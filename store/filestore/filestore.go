/*
Package filestore provides a single-document implementation of
inventory.Store.

PURPOSE:
  Keeps the whole dataset in one YAML file with sections products, sales,
  vendors and credentials. Every commit rewrites the file from the
  engine's snapshot.

WRITE PROTOCOL:
  1. Read the current document (credentials are carried over)
  2. Copy the current file to BackupDir/backup_YYYYMMDD_HHMMSS.yaml
     (failure is logged and ignored)
  3. Write the new document to a temp file in the same directory
  4. fsync, close, rename over the data file

  A crash at any point leaves either the old or the new file in place,
  never a partial one.

BACKUPS:
  KeepBackups > 0 prunes the oldest backups beyond that count.
  KeepBackups == 0 keeps them all.

SEE ALSO:
  - document.go: section layout and record mapping
  - inventory/store.go: Store contract
*/
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JhonneBoy/sistema-estoque-vendas/auth"
	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
)

const (
	backupPrefix = "backup_"
	backupExt    = ".yaml"
	backupLayout = "20060102_150405"
)

// Options configures a Store.
type Options struct {
	// BackupDir receives a copy of the data file before each rewrite.
	// Empty disables backups.
	BackupDir   string
	KeepBackups int
	Logger      *slog.Logger
	// Now stamps backup names. Defaults to time.Now.
	Now func() time.Time
}

// Store implements inventory.Store and auth.CredentialSource on a YAML file.
type Store struct {
	mu   sync.Mutex
	path string
	opts Options
}

var (
	_ inventory.Store       = (*Store)(nil)
	_ auth.CredentialSource = (*Store)(nil)
)

// New returns a store for the document at path. The file is created on
// the first save.
func New(path string, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{path: path, opts: opts}
}

// Path returns the data file location.
func (s *Store) Path() string { return s.path }

// LoadAll reads the document. A missing file is an empty dataset.
func (s *Store) LoadAll(_ context.Context) (inventory.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return inventory.Snapshot{}, err
	}
	return doc.Snapshot()
}

// SaveAll replaces the data sections with snap.
func (s *Store) SaveAll(ctx context.Context, snap inventory.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.SetSnapshot(snap)
	return s.write(doc)
}

// LoadCredentials returns the credentials section.
func (s *Store) LoadCredentials(_ context.Context) ([]auth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc.Credentials, nil
}

// PutCredential inserts or replaces a login, keeping the data sections.
func (s *Store) PutCredential(_ context.Context, c auth.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range doc.Credentials {
		if doc.Credentials[i].User == c.User {
			doc.Credentials[i] = c
			replaced = true
		}
	}
	if !replaced {
		doc.Credentials = append(doc.Credentials, c)
	}
	return s.write(doc)
}

// =============================================================================
// FILE I/O
// =============================================================================

func (s *Store) read() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %s: %w", s.path, err)
	}
	return Parse(data)
}

func (s *Store) write(doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal data file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}

	s.backup()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace data file %s: %w", s.path, err)
	}
	return syncDir(dir)
}

// syncDir flushes dir so a completed rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open data dir %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync data dir %s: %w", dir, err)
	}
	return nil
}

// backup copies the current data file into BackupDir. Errors are logged,
// never returned.
func (s *Store) backup() {
	if s.opts.BackupDir == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err == nil {
		err = os.MkdirAll(s.opts.BackupDir, 0o755)
	}
	name := backupPrefix + s.opts.Now().Format(backupLayout) + backupExt
	if err == nil {
		err = os.WriteFile(filepath.Join(s.opts.BackupDir, name), data, 0o644)
	}
	if err != nil {
		s.opts.Logger.Warn("backup failed", slog.String("dir", s.opts.BackupDir), slog.Any("error", err))
		return
	}
	s.prune()
}

func (s *Store) prune() {
	if s.opts.KeepBackups <= 0 {
		return
	}
	backups, err := s.Backups()
	if err != nil {
		s.opts.Logger.Warn("list backups failed", slog.Any("error", err))
		return
	}
	for len(backups) > s.opts.KeepBackups {
		if err := os.Remove(filepath.Join(s.opts.BackupDir, backups[0])); err != nil {
			s.opts.Logger.Warn("prune backup failed", slog.String("file", backups[0]), slog.Any("error", err))
			return
		}
		backups = backups[1:]
	}
}

// Backups lists backup file names, oldest first.
func (s *Store) Backups() ([]string, error) {
	entries, err := os.ReadDir(s.opts.BackupDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupExt) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
