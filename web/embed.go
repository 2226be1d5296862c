// Package web holds the static page served at "/".
//
// The page is embedded at compile time so the binary needs no files on the
// device.
package web

import _ "embed"

// Index is the welcome page, served verbatim.
//
//go:embed assets/index.html
var Index []byte
