// Package vfc multiplexes named byte streams ("virtual files") onto a single
// backing byte store such as a file, a block device or a remote object.
//
// The root package holds the contracts shared by every layer: the [Store]
// primitives a container engine consumes, the [Device] a generic store
// adapter wraps, the error taxonomy and a store driver registration mechanism.
// Containers and their stream handles live in package container.
//
// # Supported Stores
//
//   - file: A file on any afero filesystem (import _ "github.com/nuln/vfc/store/file")
//   - device: Any io.ReadWriteSeeker (import _ "github.com/nuln/vfc/store/device")
//   - rclone: A container image kept on an rclone remote (import _ "github.com/nuln/vfc/store/rclone")
//
// # Quick Start
//
//	import (
//	    "github.com/nuln/vfc"
//	    "github.com/nuln/vfc/container"
//	    _ "github.com/nuln/vfc/store/file"
//	)
//
//	c, err := container.OpenConfig(&vfc.Config{
//	    Type:       "file",
//	    Path:       "./data.vfc",
//	    Mode:       vfc.ReadWrite,
//	    Identifier: "MAGIC",
//	})
//
// # Import All Stores
//
//	import _ "github.com/nuln/vfc/stores"
package vfc
