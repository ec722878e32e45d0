package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OutboxMailer writes each message as an .eml file into a directory,
// where the desktop mail integration picks it up. It keeps the mail
// hand-off on the same medium as the rest of the system: files on a
// shared folder.
type OutboxMailer struct {
	Dir string
}

// Send implements Mailer.
func (m *OutboxMailer) Send(msg *Message) error {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("create outbox: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	name := fmt.Sprintf("%d.eml", time.Now().UnixNano())
	path := filepath.Join(m.Dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write outbox message: %w", err)
	}
	return nil
}
