// Package stores registers every built-in vfc store driver. Import it with
// a blank identifier before opening containers by configuration:
//
//	import _ "github.com/nuln/vfc/stores"
package stores

import (
	"github.com/nuln/vfc"
	_ "github.com/nuln/vfc/store/device"
	_ "github.com/nuln/vfc/store/file"
	_ "github.com/nuln/vfc/store/rclone"
)

// List returns the names of all registered store drivers.
func List() []string {
	return vfc.Drivers()
}
