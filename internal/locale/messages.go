package locale

import (
	"fmt"

	"storefront-support/internal/domain"
)

type Key string

const (
	OrderAskNumber         Key = "order.ask_number"
	OrderNotFound          Key = "order.not_found"
	OrderSummary           Key = "order.summary"
	OrderTracking          Key = "order.tracking"
	OrderEstimatedDelivery Key = "order.estimated_delivery"
	ProductsNone           Key = "products.none"
	ProductsHeader         Key = "products.header"
	ProductsLine           Key = "products.line"
	FAQCapabilities        Key = "faq.capabilities"
	GeneralFallback        Key = "general.fallback"
	AttachmentReceived     Key = "attachment.received"
	LoginRequired          Key = "escalation.login_required"
	AgentConnected         Key = "escalation.connected"
	QueuedPosition         Key = "escalation.queued"
	QueuedOffDuty          Key = "escalation.queued_off_duty"
	QueueFull              Key = "escalation.queue_full"
	AgentJoined            Key = "handoff.agent_joined"
	ConversationResolved   Key = "conversation.resolved"
	ConversationClosed     Key = "conversation.closed"
	LiveChatAvailable      Key = "availability.live"
	LiveChatOffline        Key = "availability.offline"
	LiveChatNoSchedule     Key = "availability.no_schedule"
	HumanModeActive        Key = "availability.human_mode"
)

var catalog = map[domain.LanguageCode]map[Key]string{
	domain.LanguageCodeEn: {
		OrderAskNumber:         "Please share your order number (for example SOL-20240101-00012) and I will check its status.",
		OrderNotFound:          "I couldn't find order %s. Please recheck the number and try again.",
		OrderSummary:           "Order %s\nStatus: %s\nPayment: %s\nShipping: %s",
		OrderTracking:          "Tracking number: %s",
		OrderEstimatedDelivery: "Estimated delivery: %s",
		ProductsNone:           "I couldn't find matching products. Could you describe what you need in more detail?",
		ProductsHeader:         "Here are some products you might like:",
		ProductsLine:           "%d. %s - %.2f %s - rating %.1f/5\n%s",
		FAQCapabilities:        "I can help you track orders, find products, and answer questions about shipping, returns, payment and warranty. You can also ask to talk to a human agent.",
		GeneralFallback:        "Sorry, I couldn't process that right now. Could you rephrase your question, or ask to talk to a human agent?",
		AttachmentReceived:     "Thanks, we received your file.",
		LoginRequired:          "Please log in or create an account to chat with our support team.",
		AgentConnected:         "You are now connected with a support agent.",
		QueuedPosition:         "All our agents are busy. You are number %d in the queue.",
		QueuedOffDuty:          "Our agents are currently offline. You are number %d in the queue and an agent will be with you from %s.",
		QueueFull:              "All agents are busy right now. Please try again later.",
		AgentJoined:            "An agent has joined the conversation.",
		ConversationResolved:   "This conversation has been marked as resolved.",
		ConversationClosed:     "This conversation has been closed.",
		LiveChatAvailable:      "Live chat with our agents is available now.",
		LiveChatOffline:        "Our agents are offline. The AI assistant can help you now, and live chat opens at %s.",
		LiveChatNoSchedule:     "Live chat is not available. The AI assistant can help you now.",
		HumanModeActive:        "You are chatting with a support agent.",
	},
	domain.LanguageCodeAr: {
		OrderAskNumber:         "يرجى إرسال رقم الطلب (مثال SOL-20240101-00012) وسأتحقق من حالته.",
		OrderNotFound:          "لم أتمكن من العثور على الطلب %s. يرجى التحقق من الرقم والمحاولة مرة أخرى.",
		OrderSummary:           "الطلب %s\nالحالة: %s\nالدفع: %s\nالشحن: %s",
		OrderTracking:          "رقم التتبع: %s",
		OrderEstimatedDelivery: "موعد التسليم المتوقع: %s",
		ProductsNone:           "لم أجد منتجات مطابقة. هل يمكنك وصف ما تحتاجه بتفصيل أكثر؟",
		ProductsHeader:         "إليك بعض المنتجات التي قد تعجبك:",
		ProductsLine:           "%d. %s - %.2f %s - التقييم %.1f/5\n%s",
		FAQCapabilities:        "يمكنني مساعدتك في تتبع الطلبات والعثور على المنتجات والإجابة عن أسئلة الشحن والإرجاع والدفع والضمان. يمكنك أيضا طلب التحدث مع موظف الدعم.",
		GeneralFallback:        "عذرا، لم أتمكن من معالجة طلبك الآن. هل يمكنك إعادة صياغة سؤالك أو طلب التحدث مع موظف الدعم؟",
		AttachmentReceived:     "شكرا، لقد استلمنا ملفك.",
		LoginRequired:          "يرجى تسجيل الدخول أو إنشاء حساب للتحدث مع فريق الدعم.",
		AgentConnected:         "أنت الآن متصل بموظف الدعم.",
		QueuedPosition:         "جميع موظفينا مشغولون حاليا. ترتيبك في قائمة الانتظار هو %d.",
		QueuedOffDuty:          "موظفونا غير متاحين حاليا. ترتيبك في قائمة الانتظار هو %d وسيكون أحد الموظفين معك ابتداء من %s.",
		QueueFull:              "جميع الموظفين مشغولون الآن. يرجى المحاولة لاحقا.",
		AgentJoined:            "انضم موظف الدعم إلى المحادثة.",
		ConversationResolved:   "تم وضع علامة على هذه المحادثة كمحلولة.",
		ConversationClosed:     "تم إغلاق هذه المحادثة.",
		LiveChatAvailable:      "الدردشة المباشرة مع موظفينا متاحة الآن.",
		LiveChatOffline:        "موظفونا غير متاحين الآن. يمكن للمساعد الذكي مساعدتك، وتفتح الدردشة المباشرة في %s.",
		LiveChatNoSchedule:     "الدردشة المباشرة غير متاحة. يمكن للمساعد الذكي مساعدتك الآن.",
		HumanModeActive:        "أنت تتحدث الآن مع موظف الدعم.",
	},
}

// Text renders key in lang, falling back to English for unknown languages.
func Text(lang domain.LanguageCode, key Key, args ...any) string {
	table, ok := catalog[lang]
	if !ok {
		table = catalog[domain.LanguageCodeEn]
	}
	format, ok := table[key]
	if !ok {
		format = catalog[domain.LanguageCodeEn][key]
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
