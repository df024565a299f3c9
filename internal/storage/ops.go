// Package storage writes export files so readers never see a partial one.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
)

const partSuffix = ".part"

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

// AtomicFile is written under a temporary name and renamed into place by Commit.
type AtomicFile struct {
	*os.File
	final string
	done  bool
}

// Create opens path+".part" for writing, creating parent directories.
func Create(path string) (*AtomicFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path+partSuffix, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.FilePermissions)
	if err != nil {
		return nil, err
	}
	return &AtomicFile{File: f, final: path}, nil
}

// Path is where the file ends up after Commit.
func (f *AtomicFile) Path() string {
	return f.final
}

// Commit flushes the file and moves it to its final path.
func (f *AtomicFile) Commit() error {
	if f.done {
		return nil
	}
	f.done = true
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return MoveFile(f.Name(), f.final)
}

// Abort discards the temporary file. It is a no-op after Commit.
func (f *AtomicFile) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	closeErr := f.Close()
	if err := os.Remove(f.Name()); err != nil && !IsNotExist(err) {
		return err
	}
	return closeErr
}

func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}

func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
