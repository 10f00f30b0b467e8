// Package poster loads SVG poster templates and edits them.
//
// # Loader Architecture
//
//	Loader (interface)
//	    │
//	    ├── EmbeddedLoader    - sample templates compiled into the binary
//	    ├── FilesystemLoader  - templates from a custom directory on disk
//	    └── Resolver          - combines both with custom-first fallback
//
// # Template Names
//
//	{posterStyle}-{size}-{orientation}.svg          # client (preview) variant
//	{posterStyle}-{size}-{orientation}-server.svg   # print variant, preferred
//
// # Template Document
//
// A template is an SVG document whose root <svg> declares the nominal pixel
// size in width/height. Text placeholders are <text> elements with ids
// header, small-header and text, each holding one <tspan> run. The header
// is required; the others are optional. The small header may be flanked by
// small-header-line-left and small-header-line-right <line> elements.
//
// # Security
//
// Template names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package poster
