// Package storage keeps finished videos on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrNotFound = errors.New("video file not found")

// LocalStore keeps one mp4 per video id under a root directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Path is where the video for id lives.
func (s *LocalStore) Path(id string) string {
	return filepath.Join(s.root, id+".mp4")
}

// URL is the public stream reference for id.
func (s *LocalStore) URL(id string) string {
	return "/videos/" + id + "/stream"
}

// Put moves localPath into the store under id and returns its stream URL.
func (s *LocalStore) Put(ctx context.Context, localPath, id string) (string, error) {
	if id == "" || filepath.Base(id) != id {
		return "", fmt.Errorf("invalid video id %q", id)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create store dir: %w", err)
	}

	dst := s.Path(id)
	src, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return "", err
	}
	if src != absDst {
		if err := moveFile(src, absDst); err != nil {
			return "", fmt.Errorf("store video %s: %w", id, err)
		}
	}
	return s.URL(id), nil
}

// Open returns the stored file for id.
func (s *LocalStore) Open(id string) (*os.File, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, ErrNotFound
	}
	f, err := os.Open(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Sweep deletes stored videos last modified before now-olderThan and returns
// how many were removed.
func (s *LocalStore) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp4") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, entry.Name())); err != nil {
			log.Printf("[STORAGE] Failed to remove %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Rename fails across filesystems; copy then remove.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst + ".part")
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst + ".part")
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(dst+".part", dst); err != nil {
		return err
	}
	return os.Remove(src)
}
