package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/pmgasset/nomadtech/internal/domain"
)

const (
	TemplateOrderConfirmation    = "order_confirmation"
	TemplateShippingNotification = "shipping_notification"
	TemplateSubscriptionWelcome  = "subscription_welcome"
)

const uspsTrackingURL = "https://tools.usps.com/go/TrackConfirmAction"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("notify").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.html"),
)

// Message is a rendered email ready for a Sender.
type Message struct {
	Template string
	To       string
	Subject  string
	HTML     string
	Text     string
}

type orderLine struct {
	Name     string
	Quantity int
	Subtotal string
}

type orderView struct {
	FirstName   string
	Reference   string
	Items       []orderLine
	Total       string
	Shipping    []string
	HasDataPlan bool
}

type shippingView struct {
	FirstName      string
	Reference      string
	TrackingNumber string
	TrackingURL    string
}

type welcomeView struct {
	FirstName string
	PlanName  string
	Status    string
	PlanPrice string
	RenewsOn  string
}

func greetingName(c *domain.Customer) string {
	if name := c.FirstName(); name != "" {
		return name
	}
	return "there"
}

func customerEmail(c *domain.Customer) string {
	if c == nil {
		return ""
	}
	return c.Email
}

func RenderOrderConfirmation(order *domain.Order) (Message, error) {
	view := orderView{
		FirstName:   greetingName(order.Customer),
		Reference:   order.Reference(),
		Total:       order.TotalAmount.Format(),
		Shipping:    order.Shipping.Lines(),
		HasDataPlan: order.SubscriptionExternalID != "",
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderLine{
			Name:     item.Name,
			Quantity: item.Quantity,
			Subtotal: item.Subtotal().Format(),
		})
	}

	html, err := render(TemplateOrderConfirmation, view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Template: TemplateOrderConfirmation,
		To:       customerEmail(order.Customer),
		Subject:  "Order Confirmed - Your Router is Being Prepared!",
		HTML:     html,
		Text:     fmt.Sprintf("Hi %s, your order #%s is confirmed. Total: %s.", view.FirstName, view.Reference, view.Total),
	}, nil
}

func RenderShippingNotification(order *domain.Order) (Message, error) {
	view := shippingView{
		FirstName:      greetingName(order.Customer),
		Reference:      order.Reference(),
		TrackingNumber: order.TrackingNumber,
		TrackingURL:    uspsTrackingURL + "?tLabels=" + url.QueryEscape(order.TrackingNumber),
	}

	html, err := render(TemplateShippingNotification, view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Template: TemplateShippingNotification,
		To:       customerEmail(order.Customer),
		Subject:  "Your Router Has Shipped!",
		HTML:     html,
		Text:     fmt.Sprintf("Hi %s, order #%s has shipped. Tracking number: %s.", view.FirstName, view.Reference, view.TrackingNumber),
	}, nil
}

func RenderSubscriptionWelcome(customer *domain.Customer, sub *domain.Subscription) (Message, error) {
	view := welcomeView{
		FirstName: greetingName(customer),
		PlanName:  sub.PlanName,
		Status:    strings.ToLower(strings.ReplaceAll(sub.Status.String(), "_", " ")),
	}
	if view.PlanName == "" {
		view.PlanName = "your data plan"
	}
	if sub.PlanPrice > 0 {
		view.PlanPrice = sub.PlanPrice.Format()
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		view.RenewsOn = sub.CurrentPeriodEnd.Format("January 2, 2006")
	}

	html, err := render(TemplateSubscriptionWelcome, view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Template: TemplateSubscriptionWelcome,
		To:       customerEmail(customer),
		Subject:  "Your NomadNet data plan is active",
		HTML:     html,
		Text:     fmt.Sprintf("Hi %s, welcome to %s.", view.FirstName, view.PlanName),
	}, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
