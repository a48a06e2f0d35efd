package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// HashChunkSize bounds how much of a file is held in memory while hashing.
const HashChunkSize = 64 * 1024

// HashFile returns the hex-encoded SHA-256 digest of the file at path. The file
// is streamed through a fixed-size buffer so arbitrarily large files hash in
// constant memory.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, HashChunkSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// SameContent reports whether the two files hash to the same digest.
func SameContent(a, b string) (bool, error) {
	left, err := HashFile(a)
	if err != nil {
		return false, err
	}
	right, err := HashFile(b)
	if err != nil {
		return false, err
	}
	return left == right, nil
}

// MoveFile renames src to dst, creating missing parent directories. When the
// rename crosses filesystems it falls back to a verified copy followed by
// removal of src.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
			if err := CopyFileVerified(src, dst); err != nil {
				return fmt.Errorf("copy file across devices: %w", err)
			}
			if err := os.Remove(src); err != nil {
				return fmt.Errorf("remove source after copy: %w", err)
			}
			return nil
		}
		return fmt.Errorf("move file: %w", err)
	}
	return nil
}

// afterCopy runs once dst is written and closed, before it is re-read.
var afterCopy = func(string) {}

// CopyFileVerified streams src to dst, then re-reads dst from disk and checks
// its size and SHA-256 digest against what was read from src. dst is removed
// on any mismatch. The source permission bits are carried over.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	written, err := io.CopyBuffer(out, io.TeeReader(in, srcHasher), make([]byte, HashChunkSize))
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("sync destination: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}
	afterCopy(dst)

	dstInfo, err := os.Stat(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("stat destination: %w", err)
	}
	if dstInfo.Size() != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, destination %d bytes", srcSize, dstInfo.Size())
	}
	dstSum, err := HashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("verify destination: %w", err)
	}
	if dstSum != hex.EncodeToString(srcHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: destination differs from source on disk")
	}
	return nil
}

// Within reports whether path is root itself or lies beneath it. Both are
// cleaned first; no symlinks are resolved.
func Within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
