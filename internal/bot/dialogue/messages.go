// internal/bot/dialogue/messages.go
package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"orderbot/internal/bot/timeline"
	"orderbot/internal/models"
)

const greetingMessage = `Hello mam/sir! 😊

Could you please tell your return gift requirement:

1. Quantity
2. Budget per piece
3. When needed
4. Delivery location

Thank you!`

const selectionReprompt = `I didn't catch that! 😅

Please reply with:
• A number (1, 2, 3...)
• Or the product name

Which product would you like?`

func confirmationPrompt(quantity, budget int) string {
	return fmt.Sprintf(`Can you please confirm?

Quantity: %d pieces
Budget: ₹%d per piece

Reply "yes" to confirm or send correct values.`, quantity, budget)
}

func missingFieldsPrompt(missing []string) string {
	if len(missing) == 1 {
		return fmt.Sprintf("Could you please share %s?", missing[0])
	}
	items := strings.Join(missing[:len(missing)-1], ", ") + " and " + missing[len(missing)-1]
	return fmt.Sprintf("Could you please share %s?", items)
}

func noProductsMessage(budget int) string {
	return fmt.Sprintf("Sorry mam/sir, no products available for ₹%d per piece.\n\n"+
		"Our team will help you find alternatives.\n\n"+
		"Thank you! 🙏", budget)
}

func requirementsSummary(req *models.RequirementRecord, productCount int) string {
	var b strings.Builder
	b.WriteString("Based on your requirement,\n\n")
	fmt.Fprintf(&b, "Number of pieces: %d pieces\n", *req.Quantity)
	fmt.Fprintf(&b, "Budget: ₹%d per piece\n", *req.BudgetPerPiece)
	fmt.Fprintf(&b, "Delivery location: %s\n", req.Location)
	fmt.Fprintf(&b, "When needed: %s\n\n", timeline.DisplayText(req.Timeline))
	fmt.Fprintf(&b, "Here are %d options for you:", productCount)
	return b.String()
}

func orderConfirmationMessage(product *models.Product, req *models.RequirementRecord) string {
	total := product.Price * *req.Quantity

	var b strings.Builder
	b.WriteString("Thank you!\n\n")
	b.WriteString(product.Name + "\n")
	fmt.Fprintf(&b, "Quantity: %d pieces\n", *req.Quantity)
	fmt.Fprintf(&b, "Total: ₹%s\n", groupDigits(total))
	if req.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", req.Location)
	}
	b.WriteString("\nOur team will contact you shortly.\n\nThank you! 🙏")
	return b.String()
}

const fallbackOrderMessage = "Our team will contact you shortly to complete your order.\n\nThank you! 🙏"

// handoffReasonText renders the operator-facing explanation for a handoff.
func handoffReasonText(reason models.HandoffReason, message string) string {
	switch reason {
	case models.ReasonImageSent:
		return "🚨 Reason: Customer sent image (bot cannot identify products from images)"
	case models.ReasonQuickPriceQuery:
		return "🚨 Reason: Quick price query (likely referring to Instagram post)"
	case models.ReasonProductsShown:
		return "✅ Reason: Bot showed product options, now customer needs personalization help"
	case models.ReasonNoProducts:
		return "⚠️ Reason: No products match customer's budget"
	case models.ReasonUnhandleableQuery:
		return fmt.Sprintf("🚨 Reason: Unhandleable query - %s...", truncate(message, 50))
	case models.ReasonModelClassification:
		return "🚨 Reason: Customer query requires human assistance"
	case models.ReasonBotError:
		return "❌ Reason: Bot encountered an error"
	default:
		return fmt.Sprintf("🚨 Reason: %s", reason)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// groupDigits renders 125000 as "125,000".
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
