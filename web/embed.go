// Package web carries the embedded static assets served by the HTTP layer.
package web

import _ "embed"

// IndexHTML is the landing page with the deck-code form.
//
//go:embed index.html
var IndexHTML []byte
