package container

import (
	"io/fs"
)

// WalkFunc is the callback for Walk. Returning fs.SkipAll stops the walk
// without error.
type WalkFunc func(name string, f *VirtualFile) error

// Walk synchronizes the directory of c and calls fn for each stream in name
// order.
func Walk(c Interface, fn WalkFunc) error {
	dir, err := c.Directory()
	if err != nil {
		return err
	}
	for _, name := range dir.Names() {
		if err := fn(name, dir[name]); err != nil {
			if err == fs.SkipAll {
				return nil
			}
			return err
		}
	}
	return nil
}
