// Package domain renders the emails sent after an order is paid.
package domain

import (
	"bytes"
	"strings"
	"text/template"

	orderdomain "github.com/meninadourada/storefront/internal/order/domain"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

type view struct {
	Store string
	orderdomain.PaymentApproved
}

var funcs = template.FuncMap{
	"date": func(o orderdomain.PaymentApproved) string { return o.OrderDate.Format("02/01/2006 15:04") },
}

const addressBlock = `Endereço de Entrega:
{{.ShippingAddress.StreetName}}, {{.ShippingAddress.StreetNumber}}{{with .ShippingAddress.Complement}} - {{.}}{{end}}
{{.ShippingAddress.Neighborhood}}, {{.ShippingAddress.CityName}} - {{.ShippingAddress.StateName}}
CEP: {{.ShippingAddress.ZipCode}}
País: {{.ShippingAddress.CountryName}}
`

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`Olá {{.Customer.Name}},

Parabéns pela sua compra na {{.Store}}! Seu pedido foi aprovado e está sendo processado.

Detalhes do Pedido:
Número do Pedido: #{{.OrderID}}
Data do Pedido: {{date .PaymentApproved}}
Valor Total: R$ {{.TotalAmount.StringFixed 2}}

Itens do Pedido:
{{range .Items}}- {{.Quantity}}x {{.ProductName}} (Variação: {{.VariationID}}) - R$ {{.UnitPrice.StringFixed 2}} cada
{{end}}
{{.Customer.Name}}
` + addressBlock + `
Agradecemos a sua preferência!
Equipe {{.Store}}.
`))

var saleAlertTmpl = template.Must(template.New("sale").Funcs(funcs).Parse(`Uma nova venda foi aprovada na loja {{.Store}}!

Detalhes do Pedido:
Número do Pedido: #{{.OrderID}}
Data do Pedido: {{date .PaymentApproved}}
Valor Total: R$ {{.TotalAmount.StringFixed 2}}
Status de Pagamento: {{.GatewayPaymentStatus}}
Pagamento (MP): {{.GatewayPaymentID}}
Referência Externa (MP): {{.CorrelationToken}}

Cliente:
Nome: {{.Customer.Name}}
Email: {{.Customer.Email}}
Telefone: {{.Customer.Phone}}
CPF: {{.Customer.NationalID}}

Itens da Venda:
{{range .Items}}- {{.Quantity}}x {{.ProductName}} (Variação: {{.VariationID}}) - R$ {{.UnitPrice.StringFixed 2}} cada
{{end}}
` + addressBlock))

// CustomerConfirmation is addressed to the payer of the order.
func CustomerConfirmation(p orderdomain.PaymentApproved, store string) (Message, error) {
	body, err := render(confirmationTmpl, view{Store: store, PaymentApproved: p})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{p.Customer.Email},
		Subject: "Parabéns pela sua compra na " + store + "! Pedido #" + p.OrderID,
		Body:    body,
	}, nil
}

// SaleAlert is addressed to the store mailbox.
func SaleAlert(p orderdomain.PaymentApproved, store, storeAddress string) (Message, error) {
	body, err := render(saleAlertTmpl, view{Store: store, PaymentApproved: p})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{storeAddress},
		Subject: "NOVA VENDA APROVADA! Pedido #" + p.OrderID,
		Body:    body,
	}, nil
}

func render(t *template.Template, v view) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}
