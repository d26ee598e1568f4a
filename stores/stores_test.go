package stores_test

import (
	"slices"
	"testing"

	"github.com/nuln/vfc/stores"
)

func TestDriversRegistered(t *testing.T) {
	drivers := stores.List()
	for _, name := range []string{"device", "file", "rclone"} {
		if !slices.Contains(drivers, name) {
			t.Errorf("driver %q not registered (have %v)", name, drivers)
		}
	}
}
