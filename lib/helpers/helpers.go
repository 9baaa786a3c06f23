package helpers

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

func FormatPriceUS(price float64, escapeMarkdown bool) string {
	decimals := 6

	if price >= 1000 {
		decimals = 0
	} else if price > 1.2 {
		decimals = 2
	} else if price < 0.00001 {
		decimals = 8
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// ShortHash abbreviates a transaction hash for display: 0x1234...abcd.
func ShortHash(hash string) string {
	if len(hash) < 10 {
		return hash
	}
	return hash[:6] + "..." + hash[len(hash)-4:]
}

// ShortAddress abbreviates a wallet address to its first 8 characters.
func ShortAddress(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:8] + "..."
}
