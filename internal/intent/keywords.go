package intent

import "storefront-support/internal/domain"

func defaultKeywords() map[domain.LanguageCode]map[Intent][]string {
	return map[domain.LanguageCode]map[Intent][]string{
		domain.LanguageCodeEn: {
			OrderTracking: {
				"order", "track", "shipment", "where is my", "delivery status", "my package", "parcel",
			},
			ProductRecommendation: {
				"recommend", "suggest", "looking for", "product", "buy", "best", "gift", "cheap",
			},
			FAQ: {
				"return", "refund", "shipping", "payment", "warranty", "exchange", "cancel",
				"how long", "how do i", "policy", "cash on delivery",
			},
			HumanRequest: {
				"human", "agent", "real person", "representative", "customer service", "talk to someone",
				"speak to someone", "operator",
			},
		},
		domain.LanguageCodeAr: {
			OrderTracking: {
				"طلب", "طلبي", "تتبع", "شحنة", "أين", "وين", "توصيل طلبي",
			},
			ProductRecommendation: {
				"اقترح", "أنصح", "انصحني", "منتج", "أبحث عن", "ابحث عن", "شراء", "أشتري", "هدية", "أفضل",
			},
			FAQ: {
				"إرجاع", "ارجاع", "استرجاع", "استرداد", "شحن", "دفع", "ضمان", "استبدال", "إلغاء", "الغاء", "سياسة",
			},
			HumanRequest: {
				"موظف", "شخص حقيقي", "خدمة العملاء", "إنسان", "انسان", "مندوب", "أكلم أحد",
			},
		},
	}
}
