// Package mailbox reads placement offer mail from an IMAP inbox. Messages
// are fetched with BODY.PEEK so nothing is marked seen until the pipeline
// has durably recorded the offer.
package mailbox

import (
	"context"
	"crypto/tls"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/placementwire/ingest/internal/model"
)

// Config holds IMAP connection settings.
type Config struct {
	Host     string `yaml:"host" mapstructure:"host"` // host:port, e.g. imap.gmail.com:993
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	MaxFetch int    `yaml:"max_fetch" mapstructure:"max_fetch"`
}

// Mailbox is a connected IMAP session on INBOX.
type Mailbox struct {
	client   *imapclient.Client
	maxFetch int
}

// Connect dials the server over TLS, logs in, and selects INBOX.
func Connect(ctx context.Context, cfg Config) (*Mailbox, error) {
	if cfg.Host == "" {
		return nil, eris.New("mailbox: host is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, eris.New("mailbox: username and password are required")
	}

	host := cfg.Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	c, err := imapclient.DialTLS(cfg.Host, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "mailbox: dial %s", cfg.Host)
	}

	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = c.Close()
		return nil, eris.Wrapf(err, "mailbox: login %s", cfg.Username)
	}
	if _, err := c.Select("INBOX", &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		_ = c.Close()
		return nil, eris.Wrap(err, "mailbox: select inbox")
	}

	maxFetch := cfg.MaxFetch
	if maxFetch <= 0 {
		maxFetch = 50
	}
	return &Mailbox{client: c, maxFetch: maxFetch}, nil
}

// Unread fetches unseen messages newest first, up to the configured limit.
// The seen flag is left untouched.
func (m *Mailbox) Unread(ctx context.Context) ([]model.MailMessage, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   time.Now().AddDate(0, -3, 0),
	}
	searchData, err := m.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, eris.Wrap(err, "mailbox: search unseen")
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > m.maxFetch {
		uids = uids[:m.maxFetch]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := m.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]model.MailMessage, 0, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "mailbox: fetch canceled")
		}
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, eris.Wrap(err, "mailbox: collect message")
		}

		msg := model.MailMessage{ID: strconv.FormatUint(uint64(buf.UID), 10)}
		if buf.Envelope != nil {
			msg.Subject = buf.Envelope.Subject
			msg.SentAt = buf.Envelope.Date
			msg.Sender = firstAddr(buf.Envelope.From)
		}
		if raw := buf.FindBodySection(bodyAll); raw != nil {
			msg.Body = ExtractTextBody(raw)
		}
		out = append(out, msg)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, eris.Wrap(err, "mailbox: fetch close")
	}
	zap.L().Debug("fetched unread mail", zap.Int("count", len(out)))
	return out, nil
}

// MarkRead sets the seen flag on the given message IDs. Unparseable IDs are
// skipped with a warning; re-marking an already seen message is a no-op on
// the server, so the call is safe to repeat.
func (m *Mailbox) MarkRead(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "mailbox: mark read canceled")
	}

	uids := make([]imap.UID, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			zap.L().Warn("skipping unparseable mail id", zap.String("id", id))
			continue
		}
		uids = append(uids, imap.UID(n))
	}
	if len(uids) == 0 {
		return nil
	}

	cmd := m.client.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return eris.Wrap(err, "mailbox: store seen")
	}
	return nil
}

// Close logs out and drops the connection.
func (m *Mailbox) Close() error {
	if err := m.client.Logout().Wait(); err != nil {
		zap.L().Warn("imap logout failed", zap.Error(err))
	}
	return m.client.Close()
}

func firstAddr(addrs []imap.Address) string {
	for i := range addrs {
		if a := strings.TrimSpace(addrs[i].Addr()); a != "" {
			return a
		}
		if n := strings.TrimSpace(addrs[i].Name); n != "" {
			return n
		}
	}
	return ""
}
