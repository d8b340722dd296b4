package domain

import "strings"

type ConversationStatus string

const (
	ConversationStatusOpen     ConversationStatus = "OPEN"
	ConversationStatusPending  ConversationStatus = "PENDING"
	ConversationStatusResolved ConversationStatus = "RESOLVED"
	ConversationStatusClosed   ConversationStatus = "CLOSED"
)

type ConversationMode string

const (
	ConversationModeAI    ConversationMode = "AI"
	ConversationModeHuman ConversationMode = "HUMAN"
)

type MessageType string

const (
	MessageTypeText        MessageType = "TEXT"
	MessageTypeImage       MessageType = "IMAGE"
	MessageTypeFile        MessageType = "FILE"
	MessageTypeOrderInfo   MessageType = "ORDER_INFO"
	MessageTypeProductLink MessageType = "PRODUCT_LINK"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeOrderInfo, MessageTypeProductLink:
		return true
	}
	return false
}

// IsAttachment reports whether the message carries an uploaded file.
func (t MessageType) IsAttachment() bool {
	return t == MessageTypeImage || t == MessageTypeFile
}

type SenderType string

const (
	SenderTypeCustomer SenderType = "CUSTOMER"
	SenderTypeAgent    SenderType = "AGENT"
	SenderTypeSystem   SenderType = "SYSTEM"
	SenderTypeAI       SenderType = "AI"
)

type LanguageCode string

const (
	LanguageCodeEn LanguageCode = "en"
	LanguageCodeAr LanguageCode = "ar"
)

// NormalizeLanguage maps a language tag such as "ar", "ar-EG" or an Accept-Language
// header to a supported language. Anything unrecognized is English.
func NormalizeLanguage(lang string) LanguageCode {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_,;"); i >= 0 {
		lang = lang[:i]
	}
	switch LanguageCode(lang) {
	case LanguageCodeAr:
		return LanguageCodeAr
	default:
		return LanguageCodeEn
	}
}
