package sendGrid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrNoRecipient = errors.New("order has no customer email")

type EmailService interface {
	SendOrderReceipt(ctx context.Context, order *models.Order) error
	GetSendGridClient() *sendgrid.Client
}

type emailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey string, fromEmail string, fromName string) EmailService {
	return &emailService{client: sendgrid.NewSendClient(apiKey), fromEmail: fromEmail, fromName: fromName}
}

const receiptText = `Hi {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

Thanks for your order {{.ID}}. Your payment has been received.
{{range .Items}}
  {{.Quantity}} x {{.ProductName}} @ {{.UnitPrice.StringFixed 2}} = {{.LineTotal.StringFixed 2}}{{end}}

Total: {{.TotalAmount.StringFixed 2}} {{upper .Currency}}
`

const receiptHTML = `<p>Hi {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},</p>
<p>Thanks for your order <strong>{{.ID}}</strong>. Your payment has been received.</p>
<table>{{range .Items}}
<tr><td>{{.Quantity}} &times; {{.ProductName}}</td><td>{{.LineTotal.StringFixed 2}}</td></tr>{{end}}
</table>
<p><strong>Total: {{.TotalAmount.StringFixed 2}} {{upper .Currency}}</strong></p>
`

var (
	textTmpl = texttemplate.Must(texttemplate.New("receipt").Funcs(texttemplate.FuncMap{"upper": strings.ToUpper}).Parse(receiptText))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("receipt").Funcs(htmltemplate.FuncMap{"upper": strings.ToUpper}).Parse(receiptHTML))
)

// SendOrderReceipt mails the payment confirmation for a completed order.
func (e *emailService) SendOrderReceipt(ctx context.Context, order *models.Order) error {
	if order.CustomerEmail == "" {
		return ErrNoRecipient
	}

	var text, html bytes.Buffer

	if err := textTmpl.Execute(&text, order); err != nil {
		return fmt.Errorf("rendering text receipt: %w", err)
	}

	if err := htmlTmpl.Execute(&html, order); err != nil {
		return fmt.Errorf("rendering html receipt: %w", err)
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(e.fromName, e.fromEmail))

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(order.CustomerName, order.CustomerEmail))
	personalization.Subject = fmt.Sprintf("Your order %s is confirmed", order.ID)
	message.AddPersonalizations(personalization)

	message.AddContent(mail.NewContent("text/plain", text.String()))
	message.AddContent(mail.NewContent("text/html", html.String()))

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	return nil
}

// GetSendGridClient provides access to the internal sendgrid.Client.
func (e *emailService) GetSendGridClient() *sendgrid.Client {
	return e.client
}
