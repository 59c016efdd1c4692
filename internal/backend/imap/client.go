// Package imap binds the enrichment pipeline's backend contract to a
// live IMAP server, with the local index supplying gloda identities,
// cached snippets, and tag definitions.
package imap

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/mailpane/conversations/internal/backend"
	"github.com/mailpane/conversations/internal/model"
)

// Client wraps go-imap v2 for connecting to and querying IMAP servers.
type Client struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewClient creates a new IMAP client configuration.
func NewClient(host, port, username, password string, useTLS bool) *Client {
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      useTLS,
	}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client.
func (c *Client) Connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &backend.AuthError{
			Account: c.username,
			Message: fmt.Sprintf("authentication failed: %v", err),
		}
	}

	return client, nil
}

// mailbox is a discovered mailbox with its special-use role and
// hierarchy delimiter.
type mailbox struct {
	Name  string
	Delim rune
	Kind  model.FolderKind
}

// listMailboxes enumerates all mailboxes with their special-use
// attributes.
func listMailboxes(client *imapclient.Client) ([]mailbox, error) {
	listCmd := client.List("", "*", &imap.ListOptions{
		ReturnSpecialUse: true,
	})

	var boxes []mailbox
	for {
		data := listCmd.Next()
		if data == nil {
			break
		}
		boxes = append(boxes, mailbox{
			Name:  data.Mailbox,
			Delim: data.Delim,
			Kind:  folderKindFromAttrs(data.Mailbox, data.Attrs),
		})
	}

	if err := listCmd.Close(); err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}

	return boxes, nil
}

// folderKindFromAttrs maps IMAP special-use attributes (falling back to
// well-known mailbox names) to a folder kind.
func folderKindFromAttrs(name string, attrs []imap.MailboxAttr) model.FolderKind {
	for _, attr := range attrs {
		switch attr {
		case imap.MailboxAttrSent:
			return model.FolderSent
		case imap.MailboxAttrArchive:
			return model.FolderArchives
		case imap.MailboxAttrDrafts:
			return model.FolderDrafts
		case imap.MailboxAttrJunk:
			return model.FolderJunk
		case imap.MailboxAttrTrash:
			return model.FolderTrash
		}
	}

	switch strings.ToUpper(name) {
	case "INBOX":
		return model.FolderInbox
	case "SENT", "SENT MESSAGES", "SENT ITEMS":
		return model.FolderSent
	case "ARCHIVE", "ARCHIVES":
		return model.FolderArchives
	case "DRAFTS":
		return model.FolderDrafts
	case "TRASH", "DELETED MESSAGES":
		return model.FolderTrash
	case "JUNK", "SPAM":
		return model.FolderJunk
	}

	return model.FolderOther
}

// systemFlags are IMAP flags that never map to user tag keys.
var systemFlags = map[imap.Flag]bool{
	imap.FlagSeen:     true,
	imap.FlagAnswered: true,
	imap.FlagFlagged:  true,
	imap.FlagDeleted:  true,
	imap.FlagDraft:    true,
}

// tagKeysFromFlags extracts user keyword flags, which map to tag keys.
func tagKeysFromFlags(flags []imap.Flag) []string {
	var keys []string
	for _, f := range flags {
		if systemFlags[f] {
			continue
		}
		if strings.HasPrefix(string(f), `\`) {
			continue
		}
		keys = append(keys, string(f))
	}
	return keys
}
