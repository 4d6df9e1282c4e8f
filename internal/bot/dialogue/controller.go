// internal/bot/dialogue/controller.go
package dialogue

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"orderbot/internal/bot/catalog"
	"orderbot/internal/bot/classifier"
	"orderbot/internal/bot/requirements"
	"orderbot/internal/bot/timeline"
	"orderbot/internal/common/logger"
	"orderbot/internal/common/metrics"
	"orderbot/internal/models"
	"orderbot/internal/notify"
)

const imageMarker = "[IMAGE_SENT]"

var quickPriceQueries = []string{
	"pp", "price please", "price pls", "rate pls", "rate please",
	"available?", "stock?", "available", "in stock",
}

var affirmatives = map[string]bool{
	"yes": true, "y": true, "ok": true, "correct": true,
	"confirm": true, "right": true, "hai": true,
}

// "hai" doubles as a greeting in local usage, so it appears in both tables;
// the awaiting-confirmation check runs first and wins.
var greetingWords = map[string]bool{
	"hello": true, "hi": true, "hey": true,
	"start": true, "new": true, "hai": true,
}

var outOfScopeKeywords = []string{
	"refund", "cancel", "complaint", "issue", "problem",
	"shipping cost", "delivery charge", "payment method",
	"customization", "customize", "design change",
	"bulk discount", "wholesale",
}

var digitsOnlyRE = regexp.MustCompile(`^\d+$`)

var dateShapeREs = []*regexp.Regexp{
	regexp.MustCompile(`(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`),
	regexp.MustCompile(`\d{1,2}[/\-]\d{1,2}`),
	regexp.MustCompile(`tomorrow|today|next week|asap`),
}

// StateStore is the persistence surface the controller needs.
type StateStore interface {
	Load(ctx context.Context, customerID string) (*models.ConversationState, error)
	Save(ctx context.Context, state *models.ConversationState) error
}

type Config struct {
	CatalogLimit int
}

// Controller is the per-turn dialogue state machine. Every stage handler is
// total: unparseable input degrades to a clarifying question or a handoff,
// and collaborator failures become silent handoffs, never customer-visible
// errors.
type Controller struct {
	store   StateStore
	catalog catalog.Searcher
	intents classifier.Classifier
	alerts  notify.Notifier
	logger  logger.Logger
	config  Config
	now     func() time.Time
}

func NewController(store StateStore, search catalog.Searcher, intents classifier.Classifier, alerts notify.Notifier, cfg Config, log logger.Logger) *Controller {
	return &Controller{
		store:   store,
		catalog: search,
		intents: intents,
		alerts:  alerts,
		logger:  log.WithFields(map[string]interface{}{"component": "dialogue"}),
		config:  cfg,
		now:     time.Now,
	}
}

// ProcessTurn handles one inbound customer message end to end: load state,
// run the stage machine, persist, alert the operator on a fresh handoff.
// It never fails the turn; the worst outcome is a silent handoff.
func (c *Controller) ProcessTurn(ctx context.Context, customerID, message string) *models.TurnResult {
	start := c.now()

	state, err := c.store.Load(ctx, customerID)
	if err != nil {
		c.logger.Error("state load failed", map[string]interface{}{
			"customerId": customerID,
			"error":      err.Error(),
		})
		metrics.TurnsProcessed.WithLabelValues("error").Inc()
		result := &models.TurnResult{
			NeedsHandoff:      true,
			HandoffReason:     models.ReasonBotError,
			HandoffReasonText: handoffReasonText(models.ReasonBotError, message),
		}
		c.alerts.HandoffAlert(ctx, customerID, models.ReasonBotError, result.HandoffReasonText, nil)
		return result
	}
	if state == nil {
		state = models.NewConversationState(customerID, start)
	}
	state.Append(models.RoleHuman, message, start)
	alreadyHandedOff := state.NeedsHumanHandoff

	result := c.runTurn(ctx, state, message, start)

	if result.Reply != "" {
		state.Append(models.RoleAssistant, result.Reply, c.now())
	}

	if err := c.store.Save(ctx, state); err != nil {
		c.logger.Error("state save failed", map[string]interface{}{
			"customerId": customerID,
			"error":      err.Error(),
		})
		metrics.TurnsProcessed.WithLabelValues("error").Inc()
		result = &models.TurnResult{
			NeedsHandoff:      true,
			HandoffReason:     models.ReasonBotError,
			HandoffReasonText: handoffReasonText(models.ReasonBotError, message),
			Requirements:      knownFields(state),
		}
		c.alerts.HandoffAlert(ctx, customerID, models.ReasonBotError, result.HandoffReasonText, result.Requirements)
		return result
	}

	if result.NeedsHandoff && !alreadyHandedOff {
		metrics.HandoffsTotal.WithLabelValues(string(result.HandoffReason)).Inc()
		c.alerts.HandoffAlert(ctx, customerID, result.HandoffReason, result.HandoffReasonText, result.Requirements)
	}

	outcome := "reply"
	switch {
	case result.NeedsHandoff:
		outcome = "handoff"
	case result.Reply == "":
		outcome = "silent"
	}
	metrics.TurnsProcessed.WithLabelValues(outcome).Inc()
	metrics.TurnDuration.WithLabelValues(string(state.Stage)).Observe(c.now().Sub(start).Seconds())

	return result
}

// runTurn is the classification ladder. Checks run in strict priority
// order; the first hit decides the route.
func (c *Controller) runTurn(ctx context.Context, state *models.ConversationState, message string, now time.Time) *models.TurnResult {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	isImage := strings.Contains(message, imageMarker)
	isQuick := len(trimmed) <= 20 && containsAny(lower, quickPriceQueries)

	if state.NeedsHumanHandoff {
		// Operator owns the conversation. No reply, but the handoff status
		// is still reported so the caller keeps routing to the operator.
		return &models.TurnResult{
			NeedsHandoff:      true,
			HandoffReason:     state.HandoffReason,
			HandoffReasonText: handoffReasonText(state.HandoffReason, message),
			Requirements:      knownFields(state),
		}
	}

	// Images and quick price queries bypass the greeting even for brand-new
	// conversations.
	if !state.HasGreeted && !isImage && !isQuick {
		state.HasGreeted = true
		state.Stage = models.StageIntentClassification
		return &models.TurnResult{Reply: greetingMessage}
	}

	if isImage {
		return c.forceHandoff(state, models.ReasonImageSent, message)
	}
	if isQuick {
		return c.forceHandoff(state, models.ReasonQuickPriceQuery, message)
	}

	if state.Stage == models.StageAwaitingConfirmation {
		if affirmatives[lower] {
			if state.Requirements != nil {
				state.Requirements.NeedsConfirmation = false
			}
			return c.validate(ctx, state, message, now)
		}
		// Anything else is a correction.
		return c.extractAndRoute(ctx, state, message, now)
	}

	if greetingWords[lower] {
		switch state.Stage {
		case models.StageHandoff:
			clearRequirementState(state)
			state.NeedsHumanHandoff = false
			state.HandoffReason = ""
		case models.StageProductSelection, models.StageOrderConfirmation:
			clearRequirementState(state)
		}
		return c.extractAndRoute(ctx, state, message, now)
	}

	// Selection is only reachable when an operator resumed the flow and set
	// the stage back by hand.
	if state.Stage == models.StageProductSelection {
		return c.selectProduct(state, lower)
	}

	if digitsOnlyRE.MatchString(lower) {
		return c.extractAndRoute(ctx, state, message, now)
	}
	if len(strings.Fields(lower)) == 1 && len(lower) > 2 {
		return c.extractAndRoute(ctx, state, message, now)
	}
	for _, re := range dateShapeREs {
		if re.MatchString(lower) {
			return c.extractAndRoute(ctx, state, message, now)
		}
	}

	if containsAny(lower, outOfScopeKeywords) {
		return c.forceHandoff(state, models.ReasonUnhandleableQuery, message)
	}

	category, err := c.intents.Classify(ctx, message)
	if err != nil {
		metrics.ClassifierCalls.WithLabelValues("error").Inc()
		c.logger.Warn("intent classification failed", map[string]interface{}{
			"customerId": state.CustomerID,
			"error":      err.Error(),
		})
		return c.forceHandoff(state, models.ReasonBotError, message)
	}
	metrics.ClassifierCalls.WithLabelValues(string(category)).Inc()

	switch category {
	case classifier.CategoryBrowseProducts, classifier.CategoryGreeting:
		return c.extractAndRoute(ctx, state, message, now)
	default:
		return c.forceHandoff(state, models.ReasonModelClassification, message)
	}
}

func (c *Controller) extractAndRoute(ctx context.Context, state *models.ConversationState, message string, now time.Time) *models.TurnResult {
	var existing models.RequirementRecord
	if state.Requirements != nil {
		existing = *state.Requirements
	}
	merged := requirements.Apply(existing, message)
	state.Requirements = &merged
	state.Stage = models.StageRequirementExtract

	if merged.Complete() && !merged.NeedsConfirmation {
		return c.validate(ctx, state, message, now)
	}
	return c.askConfirmation(state)
}

func (c *Controller) askConfirmation(state *models.ConversationState) *models.TurnResult {
	req := state.Requirements

	if req.NeedsConfirmation && req.Quantity != nil && req.BudgetPerPiece != nil {
		state.Stage = models.StageAwaitingConfirmation
		return &models.TurnResult{Reply: confirmationPrompt(*req.Quantity, *req.BudgetPerPiece)}
	}

	state.Stage = models.StageRequirementExtract
	return &models.TurnResult{Reply: missingFieldsPrompt(req.Missing())}
}

// validate resolves the timeline and runs the catalog search. Validation
// itself cannot fail: the router only sends complete records here and
// timeline resolution always produces a result.
func (c *Controller) validate(ctx context.Context, state *models.ConversationState, message string, now time.Time) *models.TurnResult {
	req := state.Requirements
	if !req.Complete() {
		return c.askConfirmation(state)
	}

	state.Stage = models.StageValidation
	resolved := timeline.Resolve(req.Timeline, now)
	state.Validation = &models.ValidationResult{
		DeliveryDate:  timeline.FormatDeliveryDate(resolved.DeliveryDate),
		DaysRemaining: resolved.DaysRemaining,
		Urgency:       resolved.Urgency,
		IsRush:        resolved.IsRush,
	}

	state.Stage = models.StageProductSearch
	products, err := c.catalog.Search(ctx, *req.Quantity, *req.BudgetPerPiece, req.Preferences, c.config.CatalogLimit)
	if err != nil {
		c.logger.Error("catalog search failed", map[string]interface{}{
			"customerId": state.CustomerID,
			"error":      err.Error(),
		})
		return c.forceHandoff(state, models.ReasonBotError, message)
	}

	state.RecommendedProducts = products
	state.Stage = models.StageRecommendation

	if len(products) == 0 {
		result := c.forceHandoff(state, models.ReasonNoProducts, message)
		result.Reply = noProductsMessage(*req.BudgetPerPiece)
		return result
	}

	result := c.forceHandoff(state, models.ReasonProductsShown, message)
	result.Products = products
	result.RequirementsSummary = requirementsSummary(req, len(products))
	return result
}

func (c *Controller) selectProduct(state *models.ConversationState, lower string) *models.TurnResult {
	products := state.RecommendedProducts
	if len(products) == 0 {
		return c.forceHandoff(state, models.ReasonBotError, lower)
	}

	var selected *models.Product
	if digitsOnlyRE.MatchString(lower) {
		if idx, err := strconv.Atoi(lower); err == nil && idx >= 1 && idx <= len(products) {
			selected = &products[idx-1]
		}
	}
	if selected == nil {
		for i := range products {
			name := strings.ToLower(products[i].Name)
			if strings.Contains(lower, name) || strings.Contains(name, lower) {
				selected = &products[i]
				break
			}
		}
	}
	if selected == nil {
		return &models.TurnResult{Reply: selectionReprompt}
	}

	state.SelectedProduct = selected
	state.Stage = models.StageOrderConfirmation
	return c.confirmOrder(state)
}

func (c *Controller) confirmOrder(state *models.ConversationState) *models.TurnResult {
	req := state.Requirements
	if state.SelectedProduct == nil || req == nil || req.Quantity == nil {
		result := c.forceHandoff(state, models.ReasonBotError, "")
		result.Reply = fallbackOrderMessage
		return result
	}

	state.Stage = models.StageHandoff
	return &models.TurnResult{Reply: orderConfirmationMessage(state.SelectedProduct, req)}
}

func (c *Controller) forceHandoff(state *models.ConversationState, reason models.HandoffReason, message string) *models.TurnResult {
	state.Stage = models.StageHandoff
	state.NeedsHumanHandoff = true
	state.HandoffReason = reason
	return &models.TurnResult{
		NeedsHandoff:      true,
		HandoffReason:     reason,
		HandoffReasonText: handoffReasonText(reason, message),
		Requirements:      knownFields(state),
	}
}

func clearRequirementState(state *models.ConversationState) {
	state.Requirements = nil
	state.RecommendedProducts = nil
	state.SelectedProduct = nil
	state.Validation = nil
}

func knownFields(state *models.ConversationState) *models.KnownFields {
	req := state.Requirements
	if req == nil {
		return nil
	}
	return &models.KnownFields{
		Quantity:       req.Quantity,
		BudgetPerPiece: req.BudgetPerPiece,
		Timeline:       timeline.DisplayText(req.Timeline),
		Location:       req.Location,
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
