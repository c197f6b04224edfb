package cli

import (
	"fmt"

	"github.com/bscott/inboxctl/internal/selectors"
)

func (c *SelectorsShowCmd) Run(ctx *Context) error {
	set, err := ctx.Config.Selectors()
	if err != nil {
		return err
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.Success(map[string]interface{}{
			"version":   set.Version,
			"file":      ctx.Config.SelectorsFile,
			"selectors": set.Entries(),
		})
	}

	source := "built-in"
	if ctx.Config.SelectorsFile != "" {
		source = ctx.Config.SelectorsFile
	}
	fmt.Fprintf(ctx.Formatter.Writer, "Selector set %s (%s)\n\n", ctx.Formatter.Bold(set.Version), source)

	table := ctx.Formatter.NewTable("NAME", "SELECTOR")
	for _, e := range set.Entries() {
		table.AddRow(e.Name, e.Selector)
	}
	table.Flush()
	return nil
}

func (c *SelectorsValidateCmd) Run(ctx *Context) error {
	path := c.File
	if path == "" {
		path = ctx.Config.SelectorsFile
	}
	if path == "" {
		return fmt.Errorf("no selectors file configured - pass a path or set selectors_file")
	}

	set, err := selectors.Load(path)
	if err != nil {
		return err
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.Success(map[string]interface{}{
			"file":    path,
			"version": set.Version,
			"valid":   true,
		})
	}
	ctx.Formatter.PrintSuccess(fmt.Sprintf("%s is valid (version %s)", path, set.Version))
	return nil
}

func (c *SelectorsExportCmd) Run(ctx *Context) error {
	if err := selectors.Default().Save(c.Out); err != nil {
		return err
	}
	ctx.Formatter.PrintSuccess(fmt.Sprintf("Wrote built-in selectors to %s", c.Out))
	return nil
}
