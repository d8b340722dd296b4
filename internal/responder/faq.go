package responder

import (
	"strings"

	"storefront-support/internal/domain"
)

type FAQEntry struct {
	Question string
	Answer   string
}

// FAQ holds canonical question/answer pairs per language.
type FAQ map[domain.LanguageCode][]FAQEntry

// Lookup returns the answer of the first canonical question contained in text.
// English entries are consulted after the requested language.
func (f FAQ) Lookup(text string, lang domain.LanguageCode) (string, bool) {
	normalized := strings.ToLower(text)
	langs := []domain.LanguageCode{lang}
	if lang != domain.LanguageCodeEn {
		langs = append(langs, domain.LanguageCodeEn)
	}
	for _, l := range langs {
		for _, entry := range f[l] {
			if strings.Contains(normalized, strings.ToLower(entry.Question)) {
				return entry.Answer, true
			}
		}
	}
	return "", false
}

func DefaultFAQ() FAQ {
	return FAQ{
		domain.LanguageCodeEn: {
			{Question: "return", Answer: "You can return any item within 14 days of delivery as long as it is unused and in its original packaging. Start a return from the Orders page."},
			{Question: "refund", Answer: "Refunds are issued to the original payment method within 5-7 business days after we receive the returned item."},
			{Question: "shipping", Answer: "Standard shipping takes 2-5 business days. Shipping is free for orders above 500 EGP."},
			{Question: "payment", Answer: "We accept credit and debit cards, mobile wallets and cash on delivery."},
			{Question: "cash on delivery", Answer: "Cash on delivery is available for orders up to 10,000 EGP."},
			{Question: "warranty", Answer: "Electronics come with the manufacturer's warranty. Keep your invoice to claim it."},
			{Question: "exchange", Answer: "Exchanges follow the return policy: request one within 14 days of delivery."},
			{Question: "cancel", Answer: "You can cancel an order from the Orders page until it has been shipped."},
		},
		domain.LanguageCodeAr: {
			{Question: "إرجاع", Answer: "يمكنك إرجاع أي منتج خلال 14 يوما من التسليم بشرط أن يكون غير مستخدم وفي عبوته الأصلية. ابدأ طلب الإرجاع من صفحة الطلبات."},
			{Question: "ارجاع", Answer: "يمكنك إرجاع أي منتج خلال 14 يوما من التسليم بشرط أن يكون غير مستخدم وفي عبوته الأصلية. ابدأ طلب الإرجاع من صفحة الطلبات."},
			{Question: "استرداد", Answer: "يتم رد المبلغ إلى وسيلة الدفع الأصلية خلال 5 إلى 7 أيام عمل بعد استلام المنتج المرتجع."},
			{Question: "شحن", Answer: "يستغرق الشحن العادي من 2 إلى 5 أيام عمل، والشحن مجاني للطلبات التي تزيد عن 500 جنيه."},
			{Question: "دفع", Answer: "نقبل البطاقات الائتمانية وبطاقات الخصم والمحافظ الإلكترونية والدفع عند الاستلام."},
			{Question: "ضمان", Answer: "الأجهزة الإلكترونية مشمولة بضمان الشركة المصنعة. احتفظ بالفاتورة للمطالبة به."},
			{Question: "استبدال", Answer: "يخضع الاستبدال لسياسة الإرجاع: اطلبه خلال 14 يوما من التسليم."},
			{Question: "إلغاء", Answer: "يمكنك إلغاء الطلب من صفحة الطلبات طالما لم يتم شحنه بعد."},
		},
	}
}
