//go:build windows

package state

import (
	"os"
)

// atomicWriteFile writes a sibling temp file and renames it over path.
// renameio has no Windows support.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
