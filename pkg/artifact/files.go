package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteAtomic replaces path with content through a temp file in the same
// directory, keeping the previous permissions when the file exists.
func WriteAtomic(path string, content []byte) error {
	var perm os.FileMode = 0644
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = f.Chmod(perm); err != nil {
		return err
	}
	if _, err = f.Write(content); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return err
	}

	success = true
	return nil
}

// IsTempFile reports whether name is an in-flight WriteAtomic temp file.
func IsTempFile(name string) bool {
	base := filepath.Base(name)
	if len(base) == 0 || base[0] != '.' {
		return false
	}
	matched, _ := filepath.Match(".*.tmp-*", base)
	return matched
}

// readOptional reads path, reporting found=false when it does not exist.
func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, ioFailure(path, err)
	}
	return data, true, nil
}
