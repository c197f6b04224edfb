package cli

import (
	"fmt"

	"github.com/bscott/inboxctl/internal/contacts"
)

func (c *ContactsListCmd) Run(ctx *Context) error {
	store, err := contacts.Load()
	if err != nil {
		return err
	}

	contactList := store.List()

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"contacts": contactList,
			"count":    len(contactList),
		})
	}

	if len(contactList) == 0 {
		fmt.Fprintln(ctx.Formatter.Writer, "No contacts in address book.")
		fmt.Fprintln(ctx.Formatter.Writer, "Use 'inboxctl contacts add <email> --alias <name>' to add contacts.")
		return nil
	}

	fmt.Fprintf(ctx.Formatter.Writer, "Contacts (%d):\n\n", len(contactList))

	table := ctx.Formatter.NewTable("EMAIL", "NAME", "ALIAS")
	for _, contact := range contactList {
		table.AddRow(contact.Email, contact.Name, contact.Alias)
	}
	table.Flush()

	return nil
}

func (c *ContactsAddCmd) Run(ctx *Context) error {
	store, err := contacts.Load()
	if err != nil {
		return err
	}

	if err := store.Add(c.Email, c.Name, c.Alias); err != nil {
		return err
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"success": true,
			"message": "Contact added",
			"email":   c.Email,
			"name":    c.Name,
			"alias":   c.Alias,
		})
	}

	label := c.Email
	if c.Name != "" {
		label = fmt.Sprintf("%s <%s>", c.Name, c.Email)
	}
	if c.Alias != "" {
		label += fmt.Sprintf(" as %q", c.Alias)
	}
	ctx.Formatter.PrintSuccess("Added contact: " + label)
	return nil
}

func (c *ContactsRemoveCmd) Run(ctx *Context) error {
	store, err := contacts.Load()
	if err != nil {
		return err
	}

	if err := store.Remove(c.Key); err != nil {
		return err
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"success": true,
			"message": "Contact removed",
			"key":     c.Key,
		})
	}

	ctx.Formatter.PrintSuccess("Removed contact: " + c.Key)
	return nil
}
