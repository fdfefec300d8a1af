package source

import (
	"bytes"
	"strconv"

	"gopkg.in/ini.v1"
)

// Yum wants key=value without padding. Set once at init: compilations for
// different hosts may run concurrently and must not race a global write.
func init() {
	ini.PrettyFormat = false
}

// yumStanza renders the INI section for a .repo file. Only keys backed by a
// present value are emitted; yum rejects empty baseurl/mirrorlist lines.
func yumStanza(name string, opts *YumOptions) string {
	cfg := ini.Empty()
	sec, _ := cfg.NewSection(name)
	sec.NewKey("name", name)
	if opts.URL != "" {
		sec.NewKey("baseurl", opts.URL)
	}
	if opts.Mirrorlist != "" {
		sec.NewKey("mirrorlist", opts.Mirrorlist)
	}
	gpgcheck := "0"
	if opts.GPGKey != "" {
		gpgcheck = "1"
	}
	sec.NewKey("gpgcheck", gpgcheck)
	if opts.GPGKey != "" {
		sec.NewKey("gpgkey", opts.GPGKey)
	}
	if opts.Priority != 0 {
		sec.NewKey("priority", strconv.Itoa(opts.Priority))
	}
	if opts.FailoverMethod != "" {
		sec.NewKey("failovermethod", opts.FailoverMethod)
	}
	sec.NewKey("enabled", "1")

	var buf bytes.Buffer
	cfg.WriteTo(&buf)
	return buf.String()
}
