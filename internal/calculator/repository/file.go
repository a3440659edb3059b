package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"refloor/internal/calculator/store"
)

// ============================================================
// File Storage
// ============================================================

type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) SessionDir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

func (s *FileStorage) StatePath(sessionID, key string) string {
	return filepath.Join(s.SessionDir(sessionID), key+".json")
}

func (s *FileStorage) EnsureDir(sessionID string) error {
	path := s.SessionDir(sessionID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir session dir: %w", err)
	}
	return nil
}

func (s *FileStorage) ForSession(sessionID string) store.Storage {
	return &fileSession{fs: s, session: sessionID}
}

// Ping проверяет, что корневой каталог доступен для записи.
func (s *FileStorage) Ping(context.Context) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("mkdir storage root: %w", err)
	}
	return nil
}

func (s *FileStorage) Close() error { return nil }

type fileSession struct {
	fs      *FileStorage
	session string
}

func (f *fileSession) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.fs.StatePath(f.session, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return data, nil
}

// Set пишет во временный файл и переименовывает его, чтобы не оставить
// наполовину записанное состояние.
func (f *fileSession) Set(_ context.Context, key string, data []byte) error {
	if err := f.fs.EnsureDir(f.session); err != nil {
		return err
	}
	target := f.fs.StatePath(f.session, key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (f *fileSession) Delete(_ context.Context, key string) error {
	err := os.Remove(f.fs.StatePath(f.session, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}
