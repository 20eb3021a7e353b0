package llm

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

func TestCannedPicksFromModePool(t *testing.T) {
	c := NewCanned(rand.New(rand.NewSource(1)))

	for mode, pool := range cannedResponses {
		text, err := c.Generate(context.Background(), &Request{Mode: mode})
		require.NoError(t, err)
		assert.Contains(t, pool, text)
	}

	text, err := c.Generate(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Contains(t, defaultResponses, text)
}

func TestCannedHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCanned(nil).Generate(ctx, &Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstrumentedRejectsEmptyText(t *testing.T) {
	p := Instrument(Static{Text: "  "})

	_, err := p.Generate(context.Background(), &Request{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	boom := errors.New("boom")
	_, err = Instrument(Static{Err: boom}).Generate(context.Background(), &Request{})
	assert.ErrorIs(t, err, boom)

	text, err := Instrument(Static{Text: "ok"}).Generate(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("", "", "")
	require.NoError(t, err)
	assert.Equal(t, ProviderCanned, p.Name())

	_, err = NewProvider(ProviderOpenAI, "", "")
	assert.Error(t, err)
	_, err = NewProvider(ProviderAnthropic, "", "")
	assert.Error(t, err)
	_, err = NewProvider("parrot", "k", "")
	assert.Error(t, err)

	p, err = NewProvider(ProviderOpenAI, "sk-test", "")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())
}

func TestToChatMessagesSkipsFailedAndEmpty(t *testing.T) {
	msgs := []model.Message{
		{Role: model.RoleUser, Content: "Hello", Status: model.StatusComplete},
		{Role: model.RoleAssistant, Content: "", Status: model.StatusError},
		{Role: model.RoleAssistant, Content: "partial", Status: model.StatusError},
		{Role: model.RoleAssistant, Content: "Hi there", Status: model.StatusComplete},
	}

	got := ToChatMessages(msgs)
	assert.Equal(t, []ChatMessage{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there"},
	}, got)

	req := &Request{Messages: got}
	assert.Equal(t, "Hello", req.LastUserContent())
}

func TestRefineFallsBackToTemplate(t *testing.T) {
	r := NewRefiner(Static{Err: errors.New("down")}, logger.NewNop())

	out, err := r.Refine(context.Background(), " plan a trip ", model.WorkModeResearch)
	require.NoError(t, err)
	assert.Contains(t, out, "Goal: plan a trip")
	assert.Contains(t, out, "survey the main perspectives")

	_, err = r.Refine(context.Background(), "   ", model.WorkModeQuick)
	assert.Error(t, err)
}

func TestRefineUsesProvider(t *testing.T) {
	r := NewRefiner(Static{Text: " Plan a 3-day trip to Lisbon on a budget. "}, logger.NewNop())

	out, err := r.Refine(context.Background(), "trip", model.WorkModeThink)
	require.NoError(t, err)
	assert.Equal(t, "Plan a 3-day trip to Lisbon on a budget.", out)
}

func TestRefineSkipsCannedProvider(t *testing.T) {
	r := NewRefiner(NewCanned(rand.New(rand.NewSource(3))), logger.NewNop())

	out, err := r.Refine(context.Background(), "write a poem", model.WorkModeCreate)
	require.NoError(t, err)
	assert.Equal(t, "Goal: write a poem\nFormat: produce a concrete draft, then suggest two variations.", out)
}
