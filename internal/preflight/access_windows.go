//go:build windows

package preflight

import "os"

// Windows has no access(2); creating a scratch file is the reliable probe.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".chapters-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
