package responder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-support/internal/clients"
	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/intent"
	"storefront-support/internal/locale"
	support_errors "storefront-support/pkg/errors"
	"storefront-support/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const productLimit = 3

type Request struct {
	Intent       intent.Intent
	Conversation conversation.Conversation
	Inbound      message.Message
	// History is oldest first and ends with the inbound message.
	History []message.Message
}

type Responder struct {
	orders        clients.OrderLookup
	catalog       clients.CatalogSearch
	generator     clients.Generator
	faq           FAQ
	storefrontURL string
	historyWindow int
	now           func() time.Time
	onFailure     func(upstream string, err error)
}

type Option func(*Responder)

func WithFAQ(faq FAQ) Option {
	return func(r *Responder) { r.faq = faq }
}

func WithClock(now func() time.Time) Option {
	return func(r *Responder) { r.now = now }
}

// WithFailureHook registers a callback invoked for every upstream failure that was replaced by a fallback.
func WithFailureHook(fn func(upstream string, err error)) Option {
	return func(r *Responder) { r.onFailure = fn }
}

func New(orders clients.OrderLookup, catalog clients.CatalogSearch, generator clients.Generator, storefrontURL string, historyWindow int, opts ...Option) *Responder {
	if historyWindow <= 0 || historyWindow > 5 {
		historyWindow = 5
	}
	r := &Responder{
		orders:        orders,
		catalog:       catalog,
		generator:     generator,
		faq:           DefaultFAQ(),
		storefrontURL: strings.TrimRight(storefrontURL, "/"),
		historyWindow: historyWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond always yields exactly one AI message. Upstream failures become fallback text.
func (r *Responder) Respond(ctx context.Context, req Request) message.Message {
	lang := req.Conversation.Language
	text := strings.TrimSpace(req.Inbound.Content)

	if req.Inbound.Type.IsAttachment() && text == "" {
		return r.reply(req, domain.MessageTypeText, locale.Text(lang, locale.AttachmentReceived), nil)
	}

	switch req.Intent {
	case intent.OrderTracking:
		return r.orderStatus(ctx, req, text)
	case intent.ProductRecommendation:
		return r.recommend(ctx, req, text)
	case intent.FAQ:
		if answer, ok := r.faq.Lookup(text, lang); ok {
			return r.reply(req, domain.MessageTypeText, answer, nil)
		}
		return r.reply(req, domain.MessageTypeText, locale.Text(lang, locale.FAQCapabilities), nil)
	case intent.General:
		return r.general(ctx, req)
	default:
		return r.reply(req, domain.MessageTypeText, locale.Text(lang, locale.FAQCapabilities), nil)
	}
}

func (r *Responder) orderStatus(ctx context.Context, req Request, text string) message.Message {
	lang := req.Conversation.Language
	orderNumber, ok := intent.ExtractOrderNumber(text)
	if !ok {
		return r.reply(req, domain.MessageTypeText, locale.Text(lang, locale.OrderAskNumber), nil)
	}

	customerID := ""
	if req.Conversation.CustomerID != nil {
		customerID = *req.Conversation.CustomerID
	}
	order, err := r.orders.GetOrder(ctx, customerID, orderNumber)
	if err != nil {
		if !errors.Is(err, support_errors.ErrNotFound) {
			r.failed(ctx, "order-service", err)
		}
		return r.reply(req, domain.MessageTypeText, locale.Text(lang, locale.OrderNotFound, orderNumber), nil)
	}

	lines := []string{locale.Text(lang, locale.OrderSummary, order.OrderNumber, order.Status, order.PaymentStatus, order.ShippingStatus)}
	if order.TrackingNumber != "" {
		lines = append(lines, locale.Text(lang, locale.OrderTracking, order.TrackingNumber))
	}
	if order.EstimatedDelivery != nil {
		lines = append(lines, locale.Text(lang, locale.OrderEstimatedDelivery, order.EstimatedDelivery.Format("2006-01-02")))
	}

	info := message.OrderInfo{
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		PaymentStatus:     order.PaymentStatus,
		ShippingStatus:    order.ShippingStatus,
		TrackingNumber:    order.TrackingNumber,
		EstimatedDelivery: order.EstimatedDelivery,
	}
	return r.reply(req, domain.MessageTypeOrderInfo, strings.Join(lines, "\n"), info)
}

func (r *Responder) recommend(ctx context.Context, req Request, text string) message.Message {
	lang := req.Conversation.Language
	products, err := r.catalog.Search(ctx, text, productLimit)
	if err != nil {
		r.failed(ctx, "catalog-service", err)
	}
	if err != nil || len(products) == 0 {
		return r.reply(req, domain.MessageTypeText, locale.Text(lang, locale.ProductsNone), nil)
	}
	if len(products) > productLimit {
		products = products[:productLimit]
	}

	links := make([]message.ProductLink, 0, len(products))
	lines := []string{locale.Text(lang, locale.ProductsHeader)}
	for i, p := range products {
		link := message.ProductLink{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Currency: p.Currency,
			Rating:   p.Rating,
			URL:      r.productURL(p),
		}
		links = append(links, link)
		lines = append(lines, locale.Text(lang, locale.ProductsLine, i+1, p.Name, p.Price, p.Currency, p.Rating, link.URL))
	}
	return r.reply(req, domain.MessageTypeProductLink, strings.Join(lines, "\n"), map[string]any{"products": links})
}

func (r *Responder) productURL(p clients.Product) string {
	slug := p.Slug
	if slug == "" {
		slug = p.ID
	}
	return fmt.Sprintf("%s/products/%s", r.storefrontURL, slug)
}

func (r *Responder) general(ctx context.Context, req Request) message.Message {
	lang := req.Conversation.Language
	history := req.History
	if len(history) > r.historyWindow {
		history = history[len(history)-r.historyWindow:]
	}
	turns := make([]clients.Turn, 0, len(history))
	for _, m := range history {
		role := "assistant"
		if m.SenderType == domain.SenderTypeCustomer {
			role = "user"
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, clients.Turn{Role: role, Text: m.Content})
	}

	customerID := ""
	if req.Conversation.CustomerID != nil {
		customerID = *req.Conversation.CustomerID
	}
	genReq := clients.GenerationRequest{
		History:    turns,
		CustomerID: customerID,
		Language:   lang,
	}
	if customerID != "" && r.orders != nil {
		orders := r.orders
		genReq.Orders = func(ctx context.Context, orderNumber string) (clients.Order, error) {
			return orders.GetOrder(ctx, customerID, orderNumber)
		}
	}
	answer, err := r.generator.Generate(ctx, genReq)
	if err != nil {
		r.failed(ctx, "language-generation", err)
		return r.reply(req, domain.MessageTypeText, locale.Text(lang, locale.GeneralFallback), nil)
	}
	return r.reply(req, domain.MessageTypeText, answer, nil)
}

func (r *Responder) failed(ctx context.Context, upstream string, err error) {
	logger.GetGlobalLogger().WarnCtx(ctx, "upstream call failed, using fallback reply",
		zap.String("upstream", upstream), zap.Error(err))
	if r.onFailure != nil {
		r.onFailure(upstream, err)
	}
}

func (r *Responder) reply(req Request, msgType domain.MessageType, content string, payload any) message.Message {
	msg := message.Message{
		ID:             uuid.New(),
		ConversationID: req.Conversation.ID,
		Content:        content,
		Type:           msgType,
		SenderType:     domain.SenderTypeAI,
		Timestamp:      r.now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			msg.Metadata = datatypes.JSON(data)
		}
	}
	return msg
}
