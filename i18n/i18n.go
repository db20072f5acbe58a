// Package i18n translates violation and error codes for API clients.
package i18n

import (
	"context"
	"net/http"
	"strings"
)

const DefaultLang = "en"

var supported = map[string]bool{"en": true, "fr": true, "ar": true}

var messages = map[string]map[string]string{
	"en": {
		"required":             "Required",
		"must_be_positive":     "Must be greater than zero",
		"must_not_be_negative": "Must not be negative",
		"out_of_range":         "Out of range",
		"too_long":             "Too long",
		"too_short":            "Too short",
		"invalid_email":        "Invalid email address",
		"invalid_choice":       "Invalid choice",
		"invalid_key":          "Invalid variable key",
		"duplicate_key":        "Duplicate variable key",
		"reserved_key":         "Reserved by a system variable",
		"invalid_number":       "Must be a number",
		"invalid_date":         "Must be a date (YYYY-MM-DD)",
		"invalid_boolean":      "Must be true or false",
		"pattern_mismatch":     "Does not match the expected format",
		"below_min":            "Below the minimum",
		"above_max":            "Above the maximum",
		"exceeds_amount_due":   "Exceeds the amount due",
		"invalid":              "Invalid",
		"taken":                "Already in use",
	},
	"fr": {
		"required":             "Requis",
		"must_be_positive":     "Doit être supérieur à zéro",
		"must_not_be_negative": "Ne doit pas être négatif",
		"out_of_range":         "Hors limites",
		"too_long":             "Trop long",
		"too_short":            "Trop court",
		"invalid_email":        "Adresse e-mail invalide",
		"invalid_choice":       "Choix invalide",
		"invalid_key":          "Clé de variable invalide",
		"duplicate_key":        "Clé de variable en double",
		"reserved_key":         "Réservée par une variable système",
		"invalid_number":       "Doit être un nombre",
		"invalid_date":         "Doit être une date (AAAA-MM-JJ)",
		"invalid_boolean":      "Doit être vrai ou faux",
		"pattern_mismatch":     "Format inattendu",
		"below_min":            "Inférieur au minimum",
		"above_max":            "Supérieur au maximum",
		"exceeds_amount_due":   "Dépasse le montant dû",
		"invalid":              "Invalide",
		"taken":                "Déjà utilisé",
	},
	"ar": {
		"required":             "مطلوب",
		"must_be_positive":     "يجب أن يكون أكبر من صفر",
		"must_not_be_negative": "يجب ألا يكون سالبًا",
		"out_of_range":         "خارج النطاق",
		"too_long":             "طويل جدًا",
		"too_short":            "قصير جدًا",
		"invalid_email":        "بريد إلكتروني غير صالح",
		"invalid_choice":       "اختيار غير صالح",
		"invalid_key":          "مفتاح متغير غير صالح",
		"duplicate_key":        "مفتاح متغير مكرر",
		"reserved_key":         "محجوز لمتغير نظام",
		"invalid_number":       "يجب أن يكون رقمًا",
		"invalid_date":         "يجب أن يكون تاريخًا",
		"invalid_boolean":      "يجب أن يكون صحيحًا أو خطأ",
		"pattern_mismatch":     "لا يطابق التنسيق المتوقع",
		"below_min":            "أقل من الحد الأدنى",
		"above_max":            "أعلى من الحد الأقصى",
		"exceeds_amount_due":   "يتجاوز المبلغ المستحق",
		"invalid":              "غير صالح",
		"taken":                "مستخدم بالفعل",
	},
}

// DetectLanguage picks the first supported primary tag of an Accept-Language
// header, in header order. q-values are ignored.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		primary, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if supported[primary] {
			return primary
		}
	}
	return DefaultLang
}

// T translates code, falling back to the default language and then to the code.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// Translate maps each field's code to a message.
func Translate(lang string, codes map[string]string) map[string]string {
	if len(codes) == 0 {
		return nil
	}
	out := make(map[string]string, len(codes))
	for field, code := range codes {
		out[field] = T(lang, code)
	}
	return out
}

type ctxKey struct{}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// FromContext returns the request language or DefaultLang.
func FromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(ctxKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// Middleware stores the language from ?lang= or Accept-Language.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("lang")
		if !supported[lang] {
			lang = DetectLanguage(r.Header.Get("Accept-Language"))
		}
		next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
	})
}
