// Package notify delivers ticket-update notifications after the
// processor commits a qualifying transaction.
//
// The notifier is an explicit dependency injected into the processor;
// when no notifier is configured the processor simply never offers
// requests to one. The contract is one-way: the notifier receives an
// already-committed request and its result, and its failure is
// reported but never reversed.
package notify

import (
	"github.com/syncsys/syncsys/internal/wire"
)

// Notifier decides whether a committed request warrants a notification
// and delivers it.
type Notifier interface {
	// ShouldNotify inspects a request before any work is done for it.
	// It must be cheap and side-effect free.
	ShouldNotify(req *wire.Request) bool

	// Notify delivers notifications for a request whose execution
	// already succeeded. Errors are reported to the caller for
	// logging; they must not affect the committed result.
	Notify(req *wire.Request, res *wire.Result) error
}

// Message is one outbound notification.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer hands a composed message to a delivery mechanism.
type Mailer interface {
	Send(msg *Message) error
}
