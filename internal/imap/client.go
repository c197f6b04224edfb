package imap

import (
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/bscott/inboxctl/internal/config"
)

type Client struct {
	client *imapclient.Client
	config *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	return &Client{
		config: cfg,
	}, nil
}

func (c *Client) Connect() error {
	password, err := c.config.GetPassword()
	if err != nil {
		return fmt.Errorf("failed to get password: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", c.config.IMAP.Host, c.config.IMAP.Port)
	options := &imapclient.Options{
		TLSConfig: &tls.Config{ServerName: c.config.IMAP.Host},
	}

	var client *imapclient.Client
	if c.config.IMAP.StartTLS {
		client, err = imapclient.DialStartTLS(addr, options)
	} else {
		client, err = imapclient.DialTLS(addr, options)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := client.Login(c.config.IMAP.Email, password).Wait(); err != nil {
		client.Close()
		return fmt.Errorf("IMAP login failed: %w", err)
	}

	c.client = client
	return nil
}

func (c *Client) Close() error {
	if c.client != nil {
		// Logout errors are irrelevant once we are closing.
		_ = c.client.Logout().Wait()
		return c.client.Close()
	}
	return nil
}

// Status returns message and unseen counts without selecting the mailbox.
func (c *Client) Status(mailbox string) (*MailboxStatus, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}

	data, err := c.client.Status(mailbox, &imap.StatusOptions{
		NumMessages: true,
		NumUnseen:   true,
	}).Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to get status of %s: %w", mailbox, err)
	}

	st := &MailboxStatus{Name: mailbox}
	if data.NumMessages != nil {
		st.Messages = *data.NumMessages
	}
	if data.NumUnseen != nil {
		st.Unseen = *data.NumUnseen
	}
	return st, nil
}
