package notify

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

// emailTemplate renders one alert batch as an HTML digest: one table per
// deal, grouped under the catalog item headings the batch arrived with.
const emailTemplate = `<html>
  <body style="font-family: Arial, sans-serif;">
    <h2 style="color: #2ecc71;">New Deals Found</h2>
    <p style="color: #7f8c8d;">{{.Total}} deal(s) across {{len .Groups}} item(s) &mdash; cycle at {{.CycleTime}}</p>
    {{range .Groups}}
    <h3 style="margin-top: 24px;">{{.ItemID}}</h3>
      {{range .Deals}}
      <table style="border-collapse: collapse; width: 100%; margin: 12px 0;">
        <tr style="background-color: #f0f0f0;">
          <td style="padding: 8px; border: 1px solid #ddd;"><b>Title</b></td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.Title}}</td>
        </tr>
        <tr>
          <td style="padding: 8px; border: 1px solid #ddd;"><b>Price</b></td>
          <td style="padding: 8px; border: 1px solid #ddd;"><b style="color: #e74c3c;">${{printf "%.2f" .Price}}</b></td>
        </tr>
        <tr style="background-color: #f0f0f0;">
          <td style="padding: 8px; border: 1px solid #ddd;"><b>Max Buy</b></td>
          <td style="padding: 8px; border: 1px solid #ddd;">${{printf "%.2f" .MaxBuy}}</td>
        </tr>
        <tr>
          <td style="padding: 8px; border: 1px solid #ddd;"><b>Resale Avg</b></td>
          <td style="padding: 8px; border: 1px solid #ddd;">${{printf "%.2f" .Resale}}</td>
        </tr>
        <tr style="background-color: #f0f0f0;">
          <td style="padding: 8px; border: 1px solid #ddd;"><b>Profit Potential</b></td>
          <td style="padding: 8px; border: 1px solid #ddd;"><b style="color: #27ae60;">${{printf "%.2f" .Profit}} ({{printf "%.1f" .MarginPct}}%)</b></td>
        </tr>
        <tr>
          <td style="padding: 8px; border: 1px solid #ddd;"><b>Location</b></td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.Location}}</td>
        </tr>
      </table>
      {{if .URL}}<p><a href="{{.URL}}" style="background-color: #3498db; color: white; padding: 8px 16px; text-decoration: none; border-radius: 5px;">View Listing</a></p>{{end}}
      {{end}}
    {{end}}
    <hr style="margin-top: 30px; border: none; border-top: 1px solid #ddd;">
    <p style="color: #7f8c8d; font-size: 12px;">Automated deal alert from flipmon</p>
  </body>
</html>`

// EmailNotifier sends one HTML digest per alert batch over SMTP with
// implicit TLS (the Gmail port-465 flavor).
type EmailNotifier struct {
	host      string
	port      int
	from      string
	password  string
	recipient string
	tmpl      *template.Template

	// deliver is swapped out in tests.
	deliver func(addr, from, to string, msg []byte) error
}

// NewEmail creates an email notifier. The template is parsed once here, so
// a broken template fails at startup rather than on the first deal.
func NewEmail(host string, port int, from, password, recipient string) (*EmailNotifier, error) {
	tmpl, err := template.New("alert").Parse(emailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse alert email template: %w", err)
	}

	n := &EmailNotifier{
		host:      host,
		port:      port,
		from:      from,
		password:  password,
		recipient: recipient,
		tmpl:      tmpl,
	}
	n.deliver = n.smtpDeliver
	return n, nil
}

// Name implements Notifier.
func (n *EmailNotifier) Name() string { return "email" }

// Send renders the batch and delivers it as one message. Empty batches are
// a no-op.
func (n *EmailNotifier) Send(batch models.AlertBatch) error {
	if batch.Empty() {
		return nil
	}

	subject := fmt.Sprintf("New Deal Found! %d deal(s) across %d item(s)", batch.Size(), len(batch.Groups))
	body, err := n.renderBody(batch)
	if err != nil {
		return fmt.Errorf("failed to render alert email: %w", err)
	}

	msg := buildMessage(n.from, n.recipient, subject, body)
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	if err := n.deliver(addr, n.from, n.recipient, msg); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

type emailDeal struct {
	models.Deal
	MarginPct float64
}

type emailData struct {
	Total     int
	CycleTime string
	Groups    []struct {
		ItemID string
		Deals  []emailDeal
	}
}

func (n *EmailNotifier) renderBody(batch models.AlertBatch) (string, error) {
	data := emailData{
		Total:     batch.Size(),
		CycleTime: batch.CycleAt.Format("2006-01-02 15:04:05"),
	}
	for _, g := range batch.Groups {
		group := struct {
			ItemID string
			Deals  []emailDeal
		}{ItemID: g.ItemID}
		for _, d := range g.Deals {
			group.Deals = append(group.Deals, emailDeal{Deal: d, MarginPct: d.Margin * 100})
		}
		data.Groups = append(data.Groups, group)
	}

	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	return buf.Bytes()
}

// smtpDeliver speaks SMTP over an implicit-TLS connection. Port 465 servers
// expect TLS from the first byte, which rules out smtp.SendMail's STARTTLS
// flow.
func (n *EmailNotifier) smtpDeliver(addr, from, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: n.host})
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, n.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	auth := smtp.PlainAuth("", n.from, n.password, n.host)
	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
