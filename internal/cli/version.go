package cli

import (
	"fmt"
	"runtime"

	"github.com/bscott/inboxctl/internal/selectors"
)

func (c *VersionCmd) Run(ctx *Context) error {
	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"name":       "inboxctl",
			"version":    Version,
			"selectors":  selectors.DefaultVersion,
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		})
	}

	w := ctx.Formatter.Writer
	fmt.Fprintf(w, "inboxctl version %s\n", Version)
	fmt.Fprintf(w, "Built-in selectors: %s\n", selectors.DefaultVersion)
	fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}
