package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/syncsys/syncsys/internal/store"
	"github.com/syncsys/syncsys/internal/wire"
)

// TicketNotifier emails assignees when a batch import updates their
// tickets.
//
// A request qualifies when its request_id contains "batch_import", its
// operation is TRANSACTION, and at least one sub-operation is an
// UPDATE on the tickets table.
type TicketNotifier struct {
	store     *store.Store
	mailer    Mailer
	table     string
	sender    string
	addresses map[string]string
	logger    *slog.Logger
}

// NewTicketNotifier builds a notifier reading ticket rows from st and
// delivering through mailer. addresses maps assignee display names to
// mail addresses.
func NewTicketNotifier(st *store.Store, mailer Mailer, table, sender string, addresses map[string]string, logger *slog.Logger) *TicketNotifier {
	if table == "" {
		table = "tickets"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketNotifier{
		store:     st,
		mailer:    mailer,
		table:     table,
		sender:    sender,
		addresses: addresses,
		logger:    logger.With("component", "notify"),
	}
}

// ShouldNotify implements Notifier.
func (n *TicketNotifier) ShouldNotify(req *wire.Request) bool {
	if !strings.Contains(req.RequestID, "batch_import") {
		return false
	}
	if req.Operation != wire.OpTransaction {
		return false
	}

	p, err := wire.DecodePayload(req.Operation, req.Data)
	if err != nil {
		return false
	}
	tp, ok := p.(wire.TransactionPayload)
	if !ok {
		return false
	}

	for _, sub := range tp.Operations {
		if sub.Type == wire.OpUpdate && sub.Table == n.table {
			return true
		}
	}
	return false
}

// Notify implements Notifier. It extracts the problem numbers named by
// the transaction's ticket updates, loads each ticket row, resolves
// the assignee's address and sends one message per ticket. Tickets
// that cannot be resolved are skipped with a log line; send failures
// are collected and returned for the caller to report.
func (n *TicketNotifier) Notify(req *wire.Request, res *wire.Result) error {
	problems := n.problemNumbers(req)
	if len(problems) == 0 {
		return nil
	}

	ctx := context.Background()
	var errs []error

	for _, problemNo := range problems {
		ticket, err := n.loadTicket(ctx, problemNo)
		if err != nil {
			errs = append(errs, fmt.Errorf("ticket %s: %w", problemNo, err))
			continue
		}
		if ticket == nil {
			n.logger.Warn("ticket not found, skipping notification", "problem_no", problemNo)
			continue
		}

		assignee, _ := ticket["assignee"].(string)
		to := n.resolveAddress(assignee)
		if to == "" {
			n.logger.Warn("no address for assignee, skipping notification",
				"problem_no", problemNo, "assignee", assignee)
			continue
		}

		msg := &Message{
			From:    n.sender,
			To:      to,
			Subject: subjectFor(ticket),
			Body:    bodyFor(ticket, req),
		}
		if err := n.mailer.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("send for ticket %s: %w", problemNo, err))
			continue
		}
		n.logger.Info("notification sent", "problem_no", problemNo, "to", to)
	}

	return errors.Join(errs...)
}

// problemNumbers collects the problem_no values named in the WHERE
// maps of UPDATE-on-tickets sub-operations.
func (n *TicketNotifier) problemNumbers(req *wire.Request) []string {
	p, err := wire.DecodePayload(req.Operation, req.Data)
	if err != nil {
		return nil
	}
	tp, ok := p.(wire.TransactionPayload)
	if !ok {
		return nil
	}

	var problems []string
	for _, sub := range tp.Operations {
		if sub.Type != wire.OpUpdate || sub.Table != n.table {
			continue
		}
		up, err := wire.DecodePayload(wire.OpUpdate, sub.Data)
		if err != nil {
			continue
		}
		where := up.(wire.UpdatePayload).Where
		if v, ok := where["problem_no"]; ok {
			problems = append(problems, fmt.Sprintf("%v", v))
		}
	}
	return problems
}

func (n *TicketNotifier) loadTicket(ctx context.Context, problemNo string) (map[string]any, error) {
	rows, err := n.store.Query(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE problem_no = ?", n.table), problemNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, rows.Err()
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	ticket := make(map[string]any, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			ticket[col] = string(b)
		} else {
			ticket[col] = values[i]
		}
	}
	return ticket, nil
}

// resolveAddress maps an assignee display name to a mail address:
// exact match first, then a fuzzy pass matching any name token longer
// than two characters.
func (n *TicketNotifier) resolveAddress(assignee string) string {
	if assignee == "" {
		return ""
	}
	if addr, ok := n.addresses[assignee]; ok {
		return addr
	}

	lower := strings.ToLower(assignee)
	for name, addr := range n.addresses {
		for _, part := range strings.FieldsFunc(name, func(r rune) bool {
			return r == ' ' || r == ','
		}) {
			if len(part) > 2 && strings.Contains(lower, strings.ToLower(part)) {
				n.logger.Debug("fuzzy assignee match", "assignee", assignee, "matched", name)
				return addr
			}
		}
	}
	return ""
}

func subjectFor(ticket map[string]any) string {
	problemNo := stringField(ticket, "problem_no", "Unknown")
	if title := stringField(ticket, "title", ""); title != "" {
		return fmt.Sprintf("Ticket Update Notification: %s - %s", problemNo, title)
	}
	return fmt.Sprintf("Ticket Update Notification: %s", problemNo)
}

func bodyFor(ticket map[string]any, req *wire.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", stringField(ticket, "assignee", "Team Member"))
	b.WriteString("A ticket assigned to you has been updated. Details:\n\n")
	fmt.Fprintf(&b, "  Problem No: %s\n", stringField(ticket, "problem_no", "N/A"))
	fmt.Fprintf(&b, "  Source:     %s\n", stringField(ticket, "source", "N/A"))
	fmt.Fprintf(&b, "  Summary:    %s\n", stringField(ticket, "short_text", "N/A"))
	fmt.Fprintf(&b, "  Status:     %s\n", stringField(ticket, "status", "N/A"))
	fmt.Fprintf(&b, "\nImport request: %s\n", req.RequestID)
	return b.String()
}

func stringField(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
