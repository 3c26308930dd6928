// Package digest computes and verifies the integrity sidecars published next
// to the manifest and every archive.
//
// A sidecar is named "<artifact>.md5" and contains only the lowercase hex MD5
// of the artifact's raw bytes. MD5 is what repository clients expect; it is
// used for change detection, not for authentication.
package digest

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Suffix is appended to an artifact path to name its sidecar.
const Suffix = ".md5"

// ErrMismatch indicates the recorded digest does not match the artifact.
var ErrMismatch = errors.New("digest mismatch")

// MismatchError provides details about a failed verification. It wraps
// ErrMismatch so callers can use errors.Is.
type MismatchError struct {
	Path     string
	Expected string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("digest mismatch for %s: recorded %s, computed %s", e.Path, e.Expected, e.Got)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// SidecarPath returns the sidecar file name for path.
func SidecarPath(path string) string {
	return path + Suffix
}

// Bytes returns the hex digest of data.
func Bytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// File returns the hex digest of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteSidecar hashes path and writes the digest to its sidecar atomically.
func WriteSidecar(path string) (string, string, error) {
	sum, err := File(path)
	if err != nil {
		return "", "", err
	}
	sidecar := SidecarPath(path)
	if err := writeAtomic(sidecar, []byte(sum)); err != nil {
		return "", "", err
	}
	return sidecar, sum, nil
}

// Read returns the digest recorded in path's sidecar.
func Read(path string) (string, error) {
	data, err := os.ReadFile(SidecarPath(path))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(string(data))), nil
}

// Verify recomputes the digest of path and compares it with the sidecar.
func Verify(path string) error {
	want, err := Read(path)
	if err != nil {
		return fmt.Errorf("read sidecar: %w", err)
	}
	got, err := File(path)
	if err != nil {
		return err
	}
	if got != want {
		return &MismatchError{Path: path, Expected: want, Got: got}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".digest-*")
	if err != nil {
		return fmt.Errorf("create temp digest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write digest: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod digest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close digest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace digest %s: %w", path, err)
	}
	return nil
}
