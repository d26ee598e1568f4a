package container

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/nuln/vfc"
)

// Directory maps stream names to their virtual files.
type Directory map[string]*VirtualFile

// Names returns the stream names in sorted order.
func (d Directory) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Directory reconciles the projected directory with the engine's and
// returns a copy of it. Names the engine has gained get a new handle, names
// it has lost have their handle retired, and every other handle is returned
// unchanged, so repeated queries yield the same *VirtualFile per name. A
// handle rebound with Assign stays under the name it was created for, even
// though its Name() then reports the stream it now targets.
func (c *Container) Directory() (Directory, error) {
	if !c.engine.IsOpen() {
		return nil, c.record(vfc.ErrNotOpen)
	}

	authoritative := c.engine.Directory()

	for name, s := range authoritative {
		f, ok := c.dir[name]
		if ok && (f.stream == s || !f.stream.Erased()) {
			continue
		}
		if ok {
			// Erased and recreated behind our back; the old handle
			// points at a dead stream.
			f.retire()
		}
		c.dir[name] = c.newVirtualFile(s)
		log.Debug().Str("name", name).Msg("container: stream discovered")
	}

	for name, f := range c.dir {
		if _, ok := authoritative[name]; !ok {
			f.retire()
			delete(c.dir, name)
			log.Debug().Str("name", name).Msg("container: stream retired")
		}
	}

	out := make(Directory, len(c.dir))
	for name, f := range c.dir {
		out[name] = f
	}
	return out, c.record(nil)
}
