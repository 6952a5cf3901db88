package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/job"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers a prepared message. *sendgrid.Client satisfies it.
type Sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type ReportMailer struct {
	viewer Viewer
	client Sender
	from   *mail.Email
}

func NewReportMailer(v Viewer, apiKey, fromName, fromAddress string) *ReportMailer {
	return NewReportMailerWithSender(v, sendgrid.NewSendClient(apiKey), fromName, fromAddress)
}

func NewReportMailerWithSender(v Viewer, client Sender, fromName, fromAddress string) *ReportMailer {
	return &ReportMailer{
		viewer: v,
		client: client,
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

// Handle mails a summary of the job's tab to the payload's "to" address.
func (m *ReportMailer) Handle(ctx context.Context, j *job.Job) error {
	to, ok := j.Payload["to"].(string)
	if !ok || to == "" {
		return errors.New("missing 'to' field")
	}

	view, err := viewOf(ctx, m.viewer, j.Tab())
	if err != nil {
		return err
	}

	subject := reportSubject(view)
	email := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), reportText(view), reportHTML(view))

	response, err := m.client.Send(email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}

	log.Printf("[Job %s] Report for %s sent to %s (status: %d)", j.ID, view.Tab, to, response.StatusCode)
	return nil
}

func reportSubject(view *board.View) string {
	return fmt.Sprintf("Bid report %s: %.2f planned / %.2f logged days",
		view.Tab, view.Series.TotalPlannedDays, view.Series.TotalLoggedDays)
}

func reportText(view *board.View) string {
	var b strings.Builder
	s := view.Series

	fmt.Fprintf(&b, "Bid report for %s (%s)\n\n", view.Tab, view.GeneratedAt.Format("2006-01-02 15:04"))
	for i, name := range s.Names {
		fmt.Fprintf(&b, "%-40s %8.2f %8.2f\n", name, s.PlannedDays[i], s.LoggedDays[i])
	}
	fmt.Fprintf(&b, "\n%-40s %8.2f %8.2f\n", "Total", s.TotalPlannedDays, s.TotalLoggedDays)
	if view.Reference.Enabled() {
		fmt.Fprintf(&b, "%-40s %8.2f\n", view.Reference.Label, view.Reference.Days)
	}

	return b.String()
}

func reportHTML(view *board.View) string {
	var b strings.Builder
	s := view.Series

	fmt.Fprintf(&b, "<h2>Bid report for %s</h2>\n", html.EscapeString(view.Tab))
	b.WriteString("<table>\n<tr><th>Task</th><th>Planned days</th><th>Logged days</th></tr>\n")
	for i, name := range s.Names {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%.2f</td><td>%.2f</td></tr>\n",
			html.EscapeString(name), s.PlannedDays[i], s.LoggedDays[i])
	}
	fmt.Fprintf(&b, "<tr><th>Total</th><th>%.2f</th><th>%.2f</th></tr>\n", s.TotalPlannedDays, s.TotalLoggedDays)
	b.WriteString("</table>\n")
	if view.Reference.Enabled() {
		fmt.Fprintf(&b, "<p>%s: %.2f days</p>\n", html.EscapeString(view.Reference.Label), view.Reference.Days)
	}

	return b.String()
}
