package imap

type MailboxStatus struct {
	Name     string `json:"name"`
	Messages uint32 `json:"messages"`
	Unseen   uint32 `json:"unseen"`
}

// UnreadCheck compares the unread count scraped from the web client with
// the server's unseen count. They legitimately differ when clusters
// collapse several messages into one row, or when the view is filtered.
type UnreadCheck struct {
	Mailbox string `json:"mailbox"`
	Visible int    `json:"visible"`
	Unseen  uint32 `json:"unseen"`
	Match   bool   `json:"match"`
}

func NewUnreadCheck(visible int, status *MailboxStatus) UnreadCheck {
	return UnreadCheck{
		Mailbox: status.Name,
		Visible: visible,
		Unseen:  status.Unseen,
		Match:   visible >= 0 && uint32(visible) == status.Unseen,
	}
}
