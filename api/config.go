package api

// Config is the on-disk classnav configuration (.classnav.hcl).
type Config struct {
	// HTMLExtensions lists the file extensions treated as HTML.
	HTMLExtensions []string `hcl:"html_extensions,optional" json:"html_extensions,omitempty"`
	// Validate turns tree-sitter checking of edits on or off (default on).
	Validate *bool `hcl:"validate,optional" json:"validate,omitempty"`
	// Devices replaces the built-in breakpoint table when present.
	Devices []Device `hcl:"device,block" json:"devices,omitempty"`
}

// Device is one responsive-breakpoint descriptor.
type Device struct {
	Prefix   string `hcl:"prefix,label" json:"prefix"`
	Label    string `hcl:"label" json:"label"`
	Priority int    `hcl:"priority" json:"priority"`
}
