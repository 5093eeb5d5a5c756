package web

import "embed"

// FS contains the embedded monitor page (HTML, JS).
//
//go:embed *.html *.js
var FS embed.FS
