package backup

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// secureDeleteDir overwrites every regular file under dir with random
// bytes, then zero bytes, then removes it, before removing dir itself.
// This guards against the content-addressed blob store leaving readable
// plaintext fragments on disk after a retention prune.
func secureDeleteDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read backup session dir: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := secureDeleteDir(path); err != nil {
				return err
			}
			continue
		}
		if err := secureDeleteFile(path); err != nil {
			return err
		}
	}

	return os.Remove(dir)
}

func secureDeleteFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	size := info.Size()

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s for overwrite: %w", path, err)
	}

	if err := overwritePass(f, size, true); err != nil {
		f.Close()
		return err
	}
	if err := overwritePass(f, size, false); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to unlink %s: %w", path, err)
	}
	return nil
}

// overwritePass writes size bytes of either random data or zeros to f,
// starting from the beginning.
func overwritePass(f *os.File, size int64, random bool) error {
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek %s: %w", f.Name(), err)
	}

	const chunkSize = 64 * 1024
	buf := make([]byte, chunkSize)

	var written int64
	for written < size {
		n := chunkSize
		if remaining := size - written; remaining < int64(chunkSize) {
			n = int(remaining)
		}
		if random {
			if _, err := rand.Read(buf[:n]); err != nil {
				return fmt.Errorf("failed to generate overwrite data: %w", err)
			}
		} else {
			for i := 0; i < n; i++ {
				buf[i] = 0
			}
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return fmt.Errorf("failed to overwrite %s: %w", f.Name(), err)
		}
		written += int64(n)
	}
	return nil
}
