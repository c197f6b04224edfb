// Package mailto turns mailto: links (RFC 6068) into compose drafts.
package mailto

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/bscott/inboxctl/internal/inbox"
)

type Link struct {
	To      []string `json:"to,omitempty"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject,omitempty"`
	Body    string   `json:"body,omitempty"`
}

// Parse decodes a mailto URI. Header names are case-insensitive and '+' is
// literal, unlike form encoding.
func Parse(raw string) (*Link, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid mailto link: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "mailto") {
		return nil, fmt.Errorf("not a mailto link: %q", raw)
	}

	link := &Link{}
	to, err := url.PathUnescape(u.Opaque)
	if err != nil {
		return nil, fmt.Errorf("invalid mailto recipients: %w", err)
	}
	if link.To, err = addresses(to); err != nil {
		return nil, err
	}

	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if value, err = url.PathUnescape(value); err != nil {
			return nil, fmt.Errorf("invalid mailto field %s: %w", key, err)
		}

		switch strings.ToLower(key) {
		case "to", "cc", "bcc":
			addrs, err := addresses(value)
			if err != nil {
				return nil, err
			}
			switch strings.ToLower(key) {
			case "to":
				link.To = append(link.To, addrs...)
			case "cc":
				link.CC = append(link.CC, addrs...)
			default:
				link.BCC = append(link.BCC, addrs...)
			}
		case "subject":
			link.Subject = value
		case "body":
			link.Body = strings.ReplaceAll(value, "\r\n", "\n")
		}
	}
	return link, nil
}

// addresses validates a comma separated list and returns bare addresses.
func addresses(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parsed, err := mail.ParseAddressList(list)
	if err != nil {
		return nil, fmt.Errorf("invalid address list %q: %w", list, err)
	}
	out := make([]string, 0, len(parsed))
	for _, a := range parsed {
		out = append(out, a.Address)
	}
	return out, nil
}

// Draft returns the compose draft for the link. The web client's compose
// form has a single recipient field, so CC and BCC are not carried over.
func (l *Link) Draft() inbox.Draft {
	return inbox.Draft{
		Recipient: strings.Join(l.To, ", "),
		Subject:   l.Subject,
		Body:      l.Body,
	}
}

// ErrEmpty is returned by Validate for a link with nothing to prefill.
var ErrEmpty = errors.New("mailto link has no recipient, subject or body")

func (l *Link) Validate() error {
	if len(l.To) == 0 && l.Subject == "" && l.Body == "" {
		return ErrEmpty
	}
	return nil
}
