// internal/bot/dialogue/controller_test.go
package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"orderbot/internal/bot/classifier"
	"orderbot/internal/common/logger"
	"orderbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.February, 10, 11, 0, 0, 0, time.UTC)

type memoryStore struct {
	states  map[string]*models.ConversationState
	loadErr error
	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{states: make(map[string]*models.ConversationState)}
}

func (m *memoryStore) Load(_ context.Context, customerID string) (*models.ConversationState, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.states[customerID], nil
}

func (m *memoryStore) Save(_ context.Context, state *models.ConversationState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[state.CustomerID] = state
	return nil
}

type stubCatalog struct {
	products []models.Product
	err      error
	lastQty  int
}

func (s *stubCatalog) Search(_ context.Context, quantity, budget int, preferences []string, limit int) ([]models.Product, error) {
	s.lastQty = quantity
	return s.products, s.err
}

type stubClassifier struct {
	category classifier.Category
	err      error
	calls    int
}

func (s *stubClassifier) Classify(context.Context, string) (classifier.Category, error) {
	s.calls++
	return s.category, s.err
}

type recordingNotifier struct {
	reasons []models.HandoffReason
}

func (r *recordingNotifier) HandoffAlert(_ context.Context, _ string, reason models.HandoffReason, _ string, _ *models.KnownFields) {
	r.reasons = append(r.reasons, reason)
}

type fixture struct {
	controller *Controller
	store      *memoryStore
	catalog    *stubCatalog
	intents    *stubClassifier
	alerts     *recordingNotifier
}

func newFixture() *fixture {
	f := &fixture{
		store:   newMemoryStore(),
		catalog: &stubCatalog{},
		intents: &stubClassifier{category: classifier.CategoryBrowseProducts},
		alerts:  &recordingNotifier{},
	}
	f.controller = NewController(f.store, f.catalog, f.intents, f.alerts, Config{CatalogLimit: 5}, logger.NewNoOpLogger())
	f.controller.now = func() time.Time { return testNow }
	return f
}

func sampleProducts() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Clay Diya Set", Category: "Traditional", Price: 42, MinOrder: 25, RelevanceScore: 126},
		{ID: 2, Name: "Jute Bag", Category: "Eco-Friendly", Price: 40, MinOrder: 10, RelevanceScore: 110},
	}
}

func TestFirstMessageGreets(t *testing.T) {
	f := newFixture()

	result := f.controller.ProcessTurn(context.Background(), "cust-1", "hi, looking for return gifts")

	assert.Contains(t, result.Reply, "Hello mam/sir!")
	assert.False(t, result.NeedsHandoff)

	state := f.store.states["cust-1"]
	require.NotNil(t, state)
	assert.True(t, state.HasGreeted)
	assert.Equal(t, models.StageIntentClassification, state.Stage)
	assert.Len(t, state.Messages, 2)
}

func TestImageBeforeGreetingHandsOff(t *testing.T) {
	f := newFixture()

	result := f.controller.ProcessTurn(context.Background(), "cust-1", "[IMAGE_SENT] what is the price of this")

	assert.Empty(t, result.Reply, "no greeting for an image-first conversation")
	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonImageSent, result.HandoffReason)
	assert.Equal(t, []models.HandoffReason{models.ReasonImageSent}, f.alerts.reasons)

	state := f.store.states["cust-1"]
	assert.Equal(t, models.StageHandoff, state.Stage)
	assert.True(t, state.NeedsHumanHandoff)
}

func TestQuickPriceQueryHandsOff(t *testing.T) {
	f := newFixture()

	result := f.controller.ProcessTurn(context.Background(), "cust-1", "pp")

	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonQuickPriceQuery, result.HandoffReason)
	assert.Contains(t, result.HandoffReasonText, "Quick price query")
}

func TestCompleteRequirementsShowProducts(t *testing.T) {
	f := newFixture()
	f.catalog.products = sampleProducts()

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "50 pieces, budget rs 100, asap, Mumbai")

	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonProductsShown, result.HandoffReason)
	assert.Len(t, result.Products, 2)
	assert.Contains(t, result.RequirementsSummary, "Number of pieces: 50 pieces")
	assert.Contains(t, result.RequirementsSummary, "Budget: ₹100 per piece")
	assert.Contains(t, result.RequirementsSummary, "Delivery location: Mumbai")
	assert.Contains(t, result.RequirementsSummary, "When needed: ASAP")
	assert.Contains(t, result.RequirementsSummary, "Here are 2 options for you:")
	assert.Equal(t, 50, f.catalog.lastQty)

	require.NotNil(t, result.Requirements)
	assert.Equal(t, 50, *result.Requirements.Quantity)

	state := f.store.states["cust-1"]
	assert.Equal(t, models.StageHandoff, state.Stage)
	require.NotNil(t, state.Validation)
	assert.Equal(t, "critical", state.Validation.Urgency)
	assert.True(t, state.Validation.IsRush)
	assert.Equal(t, "11 February 2026", state.Validation.DeliveryDate)
}

func TestNoProductsApologyAndHandoff(t *testing.T) {
	f := newFixture()

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "50 pieces, budget rs 10, asap, Mumbai")

	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonNoProducts, result.HandoffReason)
	assert.Contains(t, result.Reply, "Sorry mam/sir, no products available for ₹10 per piece")
	assert.Empty(t, result.Products)
}

func TestAmbiguousNumbersAskConfirmation(t *testing.T) {
	f := newFixture()
	f.catalog.products = sampleProducts()

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "500\n45\nFeb 22\nChennai")

	assert.False(t, result.NeedsHandoff)
	assert.Contains(t, result.Reply, "Can you please confirm?")
	assert.Contains(t, result.Reply, "Quantity: 500 pieces")
	assert.Contains(t, result.Reply, "Budget: ₹45 per piece")

	state := f.store.states["cust-1"]
	assert.Equal(t, models.StageAwaitingConfirmation, state.Stage)

	// Affirmative reply confirms the guess and runs the search.
	result = f.controller.ProcessTurn(context.Background(), "cust-1", "yes")
	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonProductsShown, result.HandoffReason)
	assert.Contains(t, result.RequirementsSummary, "When needed: Feb 22")
}

func TestCorrectionDuringConfirmation(t *testing.T) {
	f := newFixture()
	f.catalog.products = sampleProducts()

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	f.controller.ProcessTurn(context.Background(), "cust-1", "500\n45\nFeb 22\nChennai")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "600 pieces")

	// The anchored correction replaces quantity and clears the doubt.
	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonProductsShown, result.HandoffReason)
	assert.Equal(t, 600, f.catalog.lastQty)

	state := f.store.states["cust-1"]
	assert.Equal(t, 45, *state.Requirements.BudgetPerPiece)
}

func TestMissingFieldsPrompt(t *testing.T) {
	f := newFixture()

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "200 pieces")

	assert.False(t, result.NeedsHandoff)
	assert.Contains(t, result.Reply, "Could you please share")
	assert.Contains(t, result.Reply, "When needed and Delivery location")
}

func TestSequentialFillAcrossTurns(t *testing.T) {
	f := newFixture()

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	f.controller.ProcessTurn(context.Background(), "cust-1", "need gifts for my son's birthday")
	f.controller.ProcessTurn(context.Background(), "cust-1", "500")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "45")

	state := f.store.states["cust-1"]
	require.NotNil(t, state.Requirements.Quantity)
	require.NotNil(t, state.Requirements.BudgetPerPiece)
	assert.Equal(t, 500, *state.Requirements.Quantity)
	assert.Equal(t, 45, *state.Requirements.BudgetPerPiece)
	assert.Contains(t, result.Reply, "Could you please share When needed and Delivery location?")
}

func TestSilentWhileHandedOff(t *testing.T) {
	f := newFixture()

	f.controller.ProcessTurn(context.Background(), "cust-1", "[IMAGE_SENT]")
	f.alerts.reasons = nil

	result := f.controller.ProcessTurn(context.Background(), "cust-1", "hello? anyone there")

	assert.Empty(t, result.Reply)
	assert.True(t, result.NeedsHandoff, "status stays reported while the operator owns the chat")
	assert.Empty(t, f.alerts.reasons, "no duplicate operator alert while handed off")
}

func TestOutOfScopeQueryHandsOff(t *testing.T) {
	f := newFixture()

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "what about bulk discount for corporate orders")

	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonUnhandleableQuery, result.HandoffReason)
	assert.Contains(t, result.HandoffReasonText, "bulk discount")
	assert.Equal(t, 0, f.intents.calls, "keyword routing decides before the model")
}

func TestClassifierFallbackHandsOffNonBrowse(t *testing.T) {
	f := newFixture()
	f.intents.category = classifier.CategoryComplaint

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "the gifts you sent were not what we agreed on")

	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonModelClassification, result.HandoffReason)
	assert.Equal(t, 1, f.intents.calls)
}

func TestClassifierFallbackBrowseContinues(t *testing.T) {
	f := newFixture()
	f.intents.category = classifier.CategoryBrowseProducts

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "show me what you have for weddings please")

	assert.False(t, result.NeedsHandoff)
	assert.Contains(t, result.Reply, "Could you please share")
}

func TestClassifierErrorHandsOffSilently(t *testing.T) {
	f := newFixture()
	f.intents.err = errors.New("model unreachable")

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "could we talk about an arrangement of some kind")

	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonBotError, result.HandoffReason)
	assert.Empty(t, result.Reply)
}

func TestCatalogFailureHandsOffSilently(t *testing.T) {
	f := newFixture()
	f.catalog.err = errors.New("db down")

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	result := f.controller.ProcessTurn(context.Background(), "cust-1", "50 pieces, budget rs 100, asap, Mumbai")

	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonBotError, result.HandoffReason)
	assert.Empty(t, result.Reply)
}

func TestStoreLoadFailureHandsOff(t *testing.T) {
	f := newFixture()
	f.store.loadErr = errors.New("pg down")

	result := f.controller.ProcessTurn(context.Background(), "cust-1", "hi")

	assert.True(t, result.NeedsHandoff)
	assert.Equal(t, models.ReasonBotError, result.HandoffReason)
	assert.Empty(t, result.Reply)
}

func TestProductSelectionResumption(t *testing.T) {
	f := newFixture()

	state := models.NewConversationState("cust-1", testNow)
	state.HasGreeted = true
	state.Stage = models.StageProductSelection
	state.Requirements = &models.RequirementRecord{
		Quantity:       models.IntPtr(500),
		BudgetPerPiece: models.IntPtr(45),
		Timeline:       "Feb 22",
		Location:       "Chennai",
	}
	state.RecommendedProducts = sampleProducts()
	f.store.states["cust-1"] = state

	result := f.controller.ProcessTurn(context.Background(), "cust-1", "1")

	assert.False(t, result.NeedsHandoff)
	assert.Contains(t, result.Reply, "Clay Diya Set")
	assert.Contains(t, result.Reply, "Quantity: 500 pieces")
	assert.Contains(t, result.Reply, "Total: ₹21,000")
	assert.Contains(t, result.Reply, "Location: Chennai")
	assert.Equal(t, models.StageHandoff, f.store.states["cust-1"].Stage)
}

func TestProductSelectionByName(t *testing.T) {
	f := newFixture()

	state := models.NewConversationState("cust-1", testNow)
	state.HasGreeted = true
	state.Stage = models.StageProductSelection
	state.Requirements = &models.RequirementRecord{Quantity: models.IntPtr(100), BudgetPerPiece: models.IntPtr(45)}
	state.RecommendedProducts = sampleProducts()
	f.store.states["cust-1"] = state

	result := f.controller.ProcessTurn(context.Background(), "cust-1", "the jute bag one")

	assert.Contains(t, result.Reply, "Jute Bag")
	assert.Contains(t, result.Reply, "Total: ₹4,000")
}

func TestProductSelectionReprompt(t *testing.T) {
	f := newFixture()

	state := models.NewConversationState("cust-1", testNow)
	state.HasGreeted = true
	state.Stage = models.StageProductSelection
	state.Requirements = &models.RequirementRecord{Quantity: models.IntPtr(100), BudgetPerPiece: models.IntPtr(45)}
	state.RecommendedProducts = sampleProducts()
	f.store.states["cust-1"] = state

	result := f.controller.ProcessTurn(context.Background(), "cust-1", "9")

	assert.Contains(t, result.Reply, "I didn't catch that!")
	assert.Equal(t, models.StageProductSelection, f.store.states["cust-1"].Stage)
}

func TestGreetingAfterOrderConfirmationResets(t *testing.T) {
	f := newFixture()

	state := models.NewConversationState("cust-1", testNow)
	state.HasGreeted = true
	state.Stage = models.StageOrderConfirmation
	state.Requirements = &models.RequirementRecord{Quantity: models.IntPtr(500), BudgetPerPiece: models.IntPtr(45)}
	state.RecommendedProducts = sampleProducts()
	state.SelectedProduct = &state.RecommendedProducts[0]
	f.store.states["cust-1"] = state

	result := f.controller.ProcessTurn(context.Background(), "cust-1", "hello")

	assert.False(t, result.NeedsHandoff)
	assert.True(t, strings.HasPrefix(result.Reply, "Could you please share"), result.Reply)

	fresh := f.store.states["cust-1"]
	assert.Nil(t, fresh.SelectedProduct)
	assert.Empty(t, fresh.RecommendedProducts)
	require.NotNil(t, fresh.Requirements)
	assert.Nil(t, fresh.Requirements.Quantity)
}

func TestConversationStateSurvivesReload(t *testing.T) {
	f := newFixture()

	f.controller.ProcessTurn(context.Background(), "cust-1", "hi")
	f.controller.ProcessTurn(context.Background(), "cust-1", "500\n45\nFeb 22\nChennai")

	// A second controller sharing only the store picks up mid-flow.
	g := &fixture{store: f.store, catalog: &stubCatalog{products: sampleProducts()}, intents: &stubClassifier{}, alerts: &recordingNotifier{}}
	g.controller = NewController(g.store, g.catalog, g.intents, g.alerts, Config{CatalogLimit: 5}, logger.NewNoOpLogger())
	g.controller.now = func() time.Time { return testNow }

	result := g.controller.ProcessTurn(context.Background(), "cust-1", "yes")
	assert.Equal(t, models.ReasonProductsShown, result.HandoffReason)
}
