package notifier

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fest-ticketing/internal/config"
	"fest-ticketing/internal/logger"
	"fest-ticketing/internal/models"

	"github.com/skip2/go-qrcode"
)

const resendAPI = "https://api.resend.com/emails"

// Mailer sends transactional mail through the Resend HTTP API. With no
// API key configured it logs the mail instead of sending, so local
// runs and tests never hit the network by accident.
type Mailer struct {
	// APIURL is overridable for tests.
	APIURL string

	apiKey      string
	fromName    string
	from        string
	paymentLink string
	hc          *http.Client
	log         *logger.Logger
}

func NewMailer(cfg config.EmailConfig, log *logger.Logger) *Mailer {
	return &Mailer{
		APIURL:      resendAPI,
		apiKey:      cfg.APIKey,
		fromName:    cfg.FromName,
		from:        cfg.From,
		paymentLink: cfg.PaymentLink,
		hc:          &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

type resendEmail struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (m *Mailer) send(to, subject, html string) error {
	if m.apiKey == "" {
		m.log.Warn("MAIL", "RESEND_API_KEY not set, mock email triggered")
		m.log.LogMail("MOCK", to, subject)
		return nil
	}

	payload := resendEmail{
		From:    fmt.Sprintf("%s <%s>", m.fromName, m.from),
		To:      to,
		Subject: subject,
		HTML:    html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.hc.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("email provider returned status %d: %s", resp.StatusCode, string(detail))
	}

	m.log.LogMail("SENT", to, subject)
	return nil
}

func qrDataURI(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 150)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func stayLabel(stayTiming string) string {
	if stayTiming == "full_day" {
		return "Full Day (10am - 10pm)"
	}
	return "Half Day (10am - 6pm)"
}

// SendConfirmation sends one email covering every ticket of the batch,
// each with its own entry-gate QR code.
func (m *Mailer) SendConfirmation(email string, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return fmt.Errorf("no tickets to confirm for %s", email)
	}

	var sections strings.Builder
	for i, ticket := range tickets {
		qr, err := qrDataURI(ticket.TicketID)
		if err != nil {
			return fmt.Errorf("generate QR for ticket %s: %w", ticket.TicketID, err)
		}
		sections.WriteString(fmt.Sprintf(`
        <div style="border-top: 1px solid #dddddd; padding: 20px 0; text-align: left;">
            <h3 style="font-size: 20px; color: #333333; margin-top: 0;">Ticket %d of %d</h3>
            <p><strong>Name:</strong> %s</p>
            <p><strong>Ticket ID:</strong> %s</p>
            <p><strong>Stay Duration:</strong> %s</p>
            <div style="text-align: center; margin-top: 15px;">
                <img src="%s" alt="Ticket QR Code" style="width: 150px; height: 150px;"/>
                <p style="font-size: 12px; color: #666;">Scan this at the entry gate.</p>
            </div>
        </div>`, i+1, len(tickets), ticket.StudentName, ticket.TicketID, stayLabel(ticket.StayTiming), qr))
	}

	html := fmt.Sprintf(`
        <div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; border: 1px solid #ddd; border-radius: 10px; overflow: hidden;">
            <div style="background-color: #f59e0b; color: #ffffff; padding: 20px; text-align: center;">
                <h1 style="margin: 0;">Ticket Confirmation</h1>
            </div>
            <div style="padding: 20px;">
                <h2 style="color: #333333;">Hey %s, you're all set!</h2>
                <p style="color: #555555; line-height: 1.6;">
                    Thank you for your purchase! Below are your unique QR code tickets for entry.
                </p>
                %s
            </div>
            <div style="background-color: #f4f4f4; color: #666666; padding: 15px; text-align: center; font-size: 12px;">
                <p>If you have any questions, feel free to reach out to our support team.</p>
            </div>
        </div>`, tickets[0].StudentName, sections.String())

	return m.send(email, "Your Ticket Confirmation & QR Codes", html)
}

// SendPartyConfirmation confirms a side-event pass; one record covers
// the whole batch, so a single QR is issued.
func (m *Mailer) SendPartyConfirmation(email string, ticket models.PartyTicket) error {
	qr, err := qrDataURI(ticket.TicketID)
	if err != nil {
		return fmt.Errorf("generate QR for ticket %s: %w", ticket.TicketID, err)
	}

	html := fmt.Sprintf(`
        <div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; border: 1px solid #ddd; border-radius: 10px; overflow: hidden;">
            <div style="background-color: #7c3aed; color: #ffffff; padding: 20px; text-align: center;">
                <h1 style="margin: 0;">Party Pass Confirmation</h1>
            </div>
            <div style="padding: 20px;">
                <h2 style="color: #333333;">Hey %s, see you on the dance floor!</h2>
                <p><strong>Pass ID:</strong> %s</p>
                <p><strong>Admits:</strong> %d</p>
                <div style="text-align: center; margin-top: 15px;">
                    <img src="%s" alt="Pass QR Code" style="width: 150px; height: 150px;"/>
                    <p style="font-size: 12px; color: #666;">Scan this at the entry gate.</p>
                </div>
            </div>
        </div>`, ticket.Name, ticket.TicketID, ticket.TicketCount, qr)

	return m.send(email, "Your Party Pass Confirmation", html)
}

// SendReminder asks an offline purchaser to complete payment.
func (m *Mailer) SendReminder(email string, info models.ReminderInfo) error {
	link := m.paymentLink
	if link == "" {
		link = "our ticket desk"
	}

	html := fmt.Sprintf(`
        <div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; border: 1px solid #ddd; border-radius: 10px; overflow: hidden;">
            <div style="background-color: #0ea5e9; color: #ffffff; padding: 20px; text-align: center;">
                <h1 style="margin: 0;">Complete Your Reservation</h1>
            </div>
            <div style="padding: 20px;">
                <h2 style="color: #333333;">Hi %s,</h2>
                <p style="color: #555555; line-height: 1.6;">
                    Your reservation <strong>%s</strong> for %d ticket(s) is being held.
                    Please complete the payment of <strong>INR %d</strong> to confirm your tickets.
                </p>
                <p style="color: #555555;">Payment coordination: %s</p>
            </div>
        </div>`, info.Name, info.OrderID, info.TicketQuantity, info.TotalAmount, link)

	return m.send(email, "Action Required: Complete Your Ticket Payment", html)
}
