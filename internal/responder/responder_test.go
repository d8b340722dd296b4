package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"storefront-support/internal/clients"
	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/intent"
	"storefront-support/internal/locale"
	support_errors "storefront-support/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOrders struct {
	GetOrderFunc func(ctx context.Context, customerID, orderNumber string) (clients.Order, error)
}

func (m *mockOrders) GetOrder(ctx context.Context, customerID, orderNumber string) (clients.Order, error) {
	return m.GetOrderFunc(ctx, customerID, orderNumber)
}

type mockCatalog struct {
	SearchFunc func(ctx context.Context, query string, limit int) ([]clients.Product, error)
}

func (m *mockCatalog) Search(ctx context.Context, query string, limit int) ([]clients.Product, error) {
	return m.SearchFunc(ctx, query, limit)
}

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, req clients.GenerationRequest) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req clients.GenerationRequest) (string, error) {
	return m.GenerateFunc(ctx, req)
}

func unexpectedOrders(t *testing.T) *mockOrders {
	return &mockOrders{GetOrderFunc: func(ctx context.Context, customerID, orderNumber string) (clients.Order, error) {
		t.Fatal("order lookup not expected")
		return clients.Order{}, nil
	}}
}

func unexpectedCatalog(t *testing.T) *mockCatalog {
	return &mockCatalog{SearchFunc: func(ctx context.Context, query string, limit int) ([]clients.Product, error) {
		t.Fatal("catalog search not expected")
		return nil, nil
	}}
}

func unexpectedGenerator(t *testing.T) *mockGenerator {
	return &mockGenerator{GenerateFunc: func(ctx context.Context, req clients.GenerationRequest) (string, error) {
		t.Fatal("generation not expected")
		return "", nil
	}}
}

func testConversation(lang domain.LanguageCode) conversation.Conversation {
	customer := "customer-1"
	return conversation.Conversation{
		ID:         uuid.New(),
		CustomerID: &customer,
		Status:     domain.ConversationStatusOpen,
		Mode:       domain.ConversationModeAI,
		Language:   lang,
	}
}

func inbound(conv conversation.Conversation, text string) message.Message {
	return message.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Content:        text,
		Type:           domain.MessageTypeText,
		SenderType:     domain.SenderTypeCustomer,
		Timestamp:      time.Now(),
	}
}

func TestRespond_OrderTracking(t *testing.T) {
	eta := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	orders := &mockOrders{GetOrderFunc: func(ctx context.Context, customerID, orderNumber string) (clients.Order, error) {
		assert.Equal(t, "customer-1", customerID)
		assert.Equal(t, "SOL-20240101-00012", orderNumber)
		return clients.Order{
			OrderNumber:       orderNumber,
			Status:            "SHIPPED",
			PaymentStatus:     "PAID",
			ShippingStatus:    "IN_TRANSIT",
			TrackingNumber:    "TRK-77",
			EstimatedDelivery: &eta,
		}, nil
	}}
	r := New(orders, unexpectedCatalog(t), unexpectedGenerator(t), "https://shop.example", 5)
	conv := testConversation(domain.LanguageCodeEn)

	reply := r.Respond(context.Background(), Request{
		Intent:       intent.OrderTracking,
		Conversation: conv,
		Inbound:      inbound(conv, "order SOL-20240101-00012 status?"),
	})

	assert.Equal(t, domain.SenderTypeAI, reply.SenderType)
	assert.Equal(t, domain.MessageTypeOrderInfo, reply.Type)
	assert.Equal(t, conv.ID, reply.ConversationID)
	assert.Contains(t, reply.Content, "SHIPPED")
	assert.Contains(t, reply.Content, "TRK-77")
	assert.Contains(t, reply.Content, "2024-01-10")

	var info message.OrderInfo
	require.NoError(t, json.Unmarshal(reply.Metadata, &info))
	assert.Equal(t, "PAID", info.PaymentStatus)
}

func TestRespond_OrderTrackingWithoutToken(t *testing.T) {
	r := New(unexpectedOrders(t), unexpectedCatalog(t), unexpectedGenerator(t), "", 5)
	conv := testConversation(domain.LanguageCodeEn)

	reply := r.Respond(context.Background(), Request{Intent: intent.OrderTracking, Conversation: conv, Inbound: inbound(conv, "where is my order")})
	assert.Equal(t, locale.Text(domain.LanguageCodeEn, locale.OrderAskNumber), reply.Content)
	assert.Equal(t, domain.MessageTypeText, reply.Type)
}

func TestRespond_OrderLookupFailure(t *testing.T) {
	var failures []string
	orders := &mockOrders{GetOrderFunc: func(ctx context.Context, customerID, orderNumber string) (clients.Order, error) {
		return clients.Order{}, fmt.Errorf("boom: %w", support_errors.ErrUpstreamTimeout)
	}}
	r := New(orders, unexpectedCatalog(t), unexpectedGenerator(t), "", 5,
		WithFailureHook(func(upstream string, err error) { failures = append(failures, upstream) }))
	conv := testConversation(domain.LanguageCodeAr)

	reply := r.Respond(context.Background(), Request{Intent: intent.OrderTracking, Conversation: conv, Inbound: inbound(conv, "طلبي 1234567890")})
	assert.Equal(t, locale.Text(domain.LanguageCodeAr, locale.OrderNotFound, "1234567890"), reply.Content)
	assert.Equal(t, []string{"order-service"}, failures)
}

func TestRespond_ProductRecommendation(t *testing.T) {
	catalog := &mockCatalog{SearchFunc: func(ctx context.Context, query string, limit int) ([]clients.Product, error) {
		assert.Equal(t, "recommend a desk lamp", query)
		assert.Equal(t, 3, limit)
		return []clients.Product{
			{ID: "p1", Name: "Desk Lamp", Slug: "desk-lamp", Price: 250, Currency: "EGP", Rating: 4.6},
			{ID: "p2", Name: "Floor Lamp", Price: 900, Currency: "EGP", Rating: 4.1},
		}, nil
	}}
	r := New(unexpectedOrders(t), catalog, unexpectedGenerator(t), "https://shop.example/", 5)
	conv := testConversation(domain.LanguageCodeEn)

	reply := r.Respond(context.Background(), Request{Intent: intent.ProductRecommendation, Conversation: conv, Inbound: inbound(conv, "recommend a desk lamp")})
	assert.Equal(t, domain.MessageTypeProductLink, reply.Type)
	assert.Contains(t, reply.Content, "https://shop.example/products/desk-lamp")
	assert.Contains(t, reply.Content, "https://shop.example/products/p2")

	var payload struct {
		Products []message.ProductLink `json:"products"`
	}
	require.NoError(t, json.Unmarshal(reply.Metadata, &payload))
	assert.Len(t, payload.Products, 2)
}

func TestRespond_ProductRecommendationEmpty(t *testing.T) {
	catalog := &mockCatalog{SearchFunc: func(ctx context.Context, query string, limit int) ([]clients.Product, error) {
		return nil, nil
	}}
	r := New(unexpectedOrders(t), catalog, unexpectedGenerator(t), "", 5)
	conv := testConversation(domain.LanguageCodeEn)

	reply := r.Respond(context.Background(), Request{Intent: intent.ProductRecommendation, Conversation: conv, Inbound: inbound(conv, "suggest something")})
	assert.Equal(t, locale.Text(domain.LanguageCodeEn, locale.ProductsNone), reply.Content)
}

func TestRespond_FAQ(t *testing.T) {
	r := New(unexpectedOrders(t), unexpectedCatalog(t), unexpectedGenerator(t), "", 5)
	conv := testConversation(domain.LanguageCodeEn)

	reply := r.Respond(context.Background(), Request{Intent: intent.FAQ, Conversation: conv, Inbound: inbound(conv, "What is your Refund timeline?")})
	assert.Contains(t, reply.Content, "Refunds are issued")

	reply = r.Respond(context.Background(), Request{Intent: intent.FAQ, Conversation: conv, Inbound: inbound(conv, "what's your policy")})
	assert.Equal(t, locale.Text(domain.LanguageCodeEn, locale.FAQCapabilities), reply.Content)
}

func TestRespond_GeneralUsesRecentHistory(t *testing.T) {
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req clients.GenerationRequest) (string, error) {
		require.Len(t, req.History, 5)
		assert.Equal(t, "m2", req.History[0].Text)
		assert.Equal(t, "user", req.History[4].Role)
		assert.Equal(t, "customer-1", req.CustomerID)
		return "Happy to help!", nil
	}}
	r := New(unexpectedOrders(t), unexpectedCatalog(t), gen, "", 5)
	conv := testConversation(domain.LanguageCodeEn)

	var history []message.Message
	for i := 0; i < 7; i++ {
		m := inbound(conv, fmt.Sprintf("m%d", i))
		if i%2 == 1 {
			m.SenderType = domain.SenderTypeAI
		}
		history = append(history, m)
	}
	reply := r.Respond(context.Background(), Request{Intent: intent.General, Conversation: conv, Inbound: history[6], History: history})
	assert.Equal(t, "Happy to help!", reply.Content)
	assert.Equal(t, domain.SenderTypeAI, reply.SenderType)
}

func TestRespond_GeneralOffersOrdersScopedToCustomer(t *testing.T) {
	orders := &mockOrders{GetOrderFunc: func(ctx context.Context, customerID, orderNumber string) (clients.Order, error) {
		assert.Equal(t, "customer-1", customerID)
		return clients.Order{OrderNumber: orderNumber, Status: "shipped"}, nil
	}}
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req clients.GenerationRequest) (string, error) {
		require.NotNil(t, req.Orders)
		order, err := req.Orders(ctx, "A100")
		require.NoError(t, err)
		return "Order " + order.OrderNumber + " is " + order.Status, nil
	}}
	r := New(orders, unexpectedCatalog(t), gen, "", 5)
	conv := testConversation(domain.LanguageCodeEn)

	reply := r.Respond(context.Background(), Request{Intent: intent.General, Conversation: conv, Inbound: inbound(conv, "where is my stuff")})
	assert.Equal(t, "Order A100 is shipped", reply.Content)
}

func TestRespond_GeneralWithoutCustomerOffersNoOrders(t *testing.T) {
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req clients.GenerationRequest) (string, error) {
		assert.Nil(t, req.Orders)
		return "Hi!", nil
	}}
	r := New(unexpectedOrders(t), unexpectedCatalog(t), gen, "", 5)
	conv := testConversation(domain.LanguageCodeEn)
	conv.CustomerID = nil

	reply := r.Respond(context.Background(), Request{Intent: intent.General, Conversation: conv, Inbound: inbound(conv, "hello")})
	assert.Equal(t, "Hi!", reply.Content)
}

func TestRespond_GeneralTimeoutFallsBack(t *testing.T) {
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req clients.GenerationRequest) (string, error) {
		return "", support_errors.ErrUpstreamTimeout
	}}
	r := New(unexpectedOrders(t), unexpectedCatalog(t), gen, "", 5)
	conv := testConversation(domain.LanguageCodeEn)

	reply := r.Respond(context.Background(), Request{Intent: intent.General, Conversation: conv, Inbound: inbound(conv, "hello")})
	assert.Equal(t, locale.Text(domain.LanguageCodeEn, locale.GeneralFallback), reply.Content)
	assert.Equal(t, domain.SenderTypeAI, reply.SenderType)
}

func TestRespond_AttachmentAcknowledged(t *testing.T) {
	r := New(unexpectedOrders(t), unexpectedCatalog(t), unexpectedGenerator(t), "", 5)
	conv := testConversation(domain.LanguageCodeEn)
	msg := inbound(conv, "")
	msg.Type = domain.MessageTypeImage

	reply := r.Respond(context.Background(), Request{Intent: intent.General, Conversation: conv, Inbound: msg})
	assert.Equal(t, locale.Text(domain.LanguageCodeEn, locale.AttachmentReceived), reply.Content)
}
