// Package render turns classified trades into Telegram HTML alerts.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"whale-alerts/internal/domain"
)

// Button is an inline keyboard link.
type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Message is a rendered alert. Trade and Label travel with it so structured
// transports can publish the data instead of the HTML.
type Message struct {
	Text     string
	Keyboard [][]Button
	Trade    domain.ClassifiedTrade
	Label    string
}

// Render builds the alert for trade as seen by a subscriber who labelled the
// tracked address label.
func Render(trade domain.ClassifiedTrade, label string) Message {
	if label == "" {
		label = ShortAddress(trade.TrackedAddress)
	}
	symbol := trade.Symbol
	if symbol == "" {
		symbol = ShortAddress(trade.Mint)
	}

	emoji := "🟢"
	if trade.Direction == domain.DirectionSell {
		emoji = "🔴"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s %s</b>\n", emoji, trade.Direction, html.EscapeString(symbol))
	fmt.Fprintf(&b, "<b>%s</b>\n\n", html.EscapeString(label))

	input := FormatNumber(trade.InputAmount, 3) + " " + trade.InputSymbol()
	tokens := FormatNumber(trade.TokenAmount, 2) + " " + html.EscapeString(symbol)
	if trade.Direction == domain.DirectionBuy {
		fmt.Fprintf(&b, "%s swapped %s for %s\n", html.EscapeString(label), input, tokens)
	} else {
		fmt.Fprintf(&b, "%s swapped %s for %s\n", html.EscapeString(label), tokens, input)
	}

	fmt.Fprintf(&b, "💵 Value: $%s", FormatNumber(trade.ValueUSD, 2))

	var extras []string
	if trade.MarketCapUSD != nil {
		extras = append(extras, "📊 MC: $"+FormatNumber(*trade.MarketCapUSD, 2))
	}
	if trade.TokenAge != nil {
		extras = append(extras, "⏳ Age: "+FormatAge(*trade.TokenAge))
	}
	if len(extras) > 0 {
		b.WriteString("\n" + strings.Join(extras, " | "))
	}

	return Message{
		Text:     b.String(),
		Keyboard: Keyboard(trade),
		Trade:    trade,
		Label:    label,
	}
}

// Keyboard returns the chart and explorer links of trade.
func Keyboard(trade domain.ClassifiedTrade) [][]Button {
	rows := [][]Button{{
		{Text: "Dexscreener", URL: "https://dexscreener.com/solana/" + trade.Mint},
		{Text: "Pump Address", URL: "https://pump.fun/" + trade.Mint},
	}}
	if trade.Signature != "" {
		rows = append(rows, []Button{{Text: "Solscan", URL: "https://solscan.io/tx/" + trade.Signature}})
	}
	return rows
}

// ShortAddress renders a base58 address as "Abcd..wxyz".
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:4] + ".." + address[len(address)-4:]
}

// FormatAge renders a duration at the two most significant units.
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		days := int(d.Hours()) / 24
		return fmt.Sprintf("%dd %dh", days, int(d.Hours())%24)
	}
}
