package language

import (
	"regexp"
	"strings"
	"unicode"
)

// Language is the detected query language. It picks the answer language in
// the system prompt and the localized refusal message.
type Language string

const (
	English Language = "en"
	Turkish Language = "tr"
)

// Turkish-specific characters are the strongest signal.
var turkishChars = regexp.MustCompile("[şŞğĞüÜçÇöÖıİ]")

var turkishWords = map[string]bool{
	"ve": true, "veya": true, "için": true, "ile": true, "bu": true,
	"bir": true, "olan": true, "olarak": true, "da": true, "de": true,
	"mi": true, "mı": true, "ne": true, "nasıl": true, "neden": true,
	"kaç": true, "toplam": true, "tarafından": true, "göre": true,
	"arasında": true, "üzerinde": true, "altında": true, "sonra": true,
	"önce": true, "şu": true, "hangi": true, "kadar": true, "değil": true,
	"var": true, "yok": true, "evet": true, "hayır": true, "lütfen": true,
	"teşekkür": true, "merhaba": true, "günaydın": true, "iyi": true,
	"kötü": true, "büyük": true, "küçük": true, "çok": true, "az": true,
	"hepsi": true, "hiç": true, "bazı": true,
}

// question phrasings that read Turkish even when typed without Turkish
// characters, so ascii-typed queries still get a Turkish answer
var turkishPhrases = []string{
	"ne kadar", "kaç tane", "kac tane", "kac", "toplam ne", "toplam kac",
	"hangi", "nedir",
	"yapıldı", "yapılmış", "tamamlandı", "bitti",
	"taşeron", "işçi", "metre", "gün",
}

// Detect classifies a query as Turkish or English. English is the default
// when nothing signals Turkish.
func Detect(text string) Language {
	if text == "" {
		return English
	}
	if turkishChars.MatchString(text) {
		return Turkish
	}

	lower := strings.ToLower(text)
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	distinct := make(map[string]bool)
	for _, t := range tokens {
		if turkishWords[t] {
			distinct[t] = true
		}
	}
	if len(distinct) >= 2 {
		return Turkish
	}

	padded := " " + strings.Join(tokens, " ") + " "
	for _, phrase := range turkishPhrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return Turkish
		}
	}

	return English
}

// Name returns the prompt-facing name of the language.
func Name(lang Language) string {
	if lang == Turkish {
		return "Turkish"
	}
	return "English"
}

// FallbackMessage is the refusal text returned when no grounded answer can
// be produced, localized to the query language.
func FallbackMessage(lang Language) string {
	if lang == Turkish {
		return "Bu bilgiyi mevcut kayıtlarda/belgelerde bulamıyorum."
	}
	return "I cannot find this information in the provided records/documents."
}
