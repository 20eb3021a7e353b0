package llm

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
)

var cannedResponses = map[model.ResponseMode][]string{
	model.ResponseModeQuick: {
		"Short answer: yes, but check your assumptions about scale first.",
		"Quick take: start with the simplest version and measure before optimizing.",
		"In brief: the trade-off favors clarity over cleverness here.",
	},
	model.ResponseModeDeep: {
		"Let's look at this from a few angles.\n\n**Context.** The question touches on both the immediate problem and the system around it.\n\n**Analysis.** The strongest option balances reversibility with speed; decisions that are cheap to undo can be made quickly.\n\n**Recommendation.** Prototype the riskiest piece first, then revisit the plan with what you learn.",
		"There are several layers to unpack.\n\nFirst, the stated goal and the underlying need may differ. Second, constraints such as time and attention shape which answers are practical. Finally, the best next step is usually the one that produces the most information for the least effort.",
	},
	model.ResponseModeStepByStep: {
		"1. Restate the problem in one sentence.\n2. List what you already know.\n3. Identify the single biggest unknown.\n4. Design the smallest experiment that reduces it.\n5. Decide based on the result.",
		"Step 1: Define what success looks like.\nStep 2: Break the work into independent pieces.\nStep 3: Order them by risk.\nStep 4: Tackle the riskiest piece first.",
	},
	model.ResponseModeQuestions: {
		"A few questions to sharpen this:\n\n- What would change your mind?\n- Who is most affected by the outcome?\n- What happens if you do nothing?",
		"Before going further:\n\n- What constraint matters most here?\n- What have you already tried?\n- How will you know it worked?",
	},
}

var defaultResponses = []string{
	"That's an interesting question. Thinking about it, the key is to separate what you can control from what you can't, and focus your energy on the first.",
	"Here's one way to look at it: every option has a cost, and the useful question is which costs you are most willing to pay.",
	"Good thought. It might help to branch this conversation and explore an alternative framing side by side.",
	"Let me think about this. The core tension seems to be between moving fast and keeping options open. Both matter; the context decides which wins.",
}

// Canned returns a randomly chosen prepared response for the requested mode.
type Canned struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewCanned creates a canned provider. A nil rnd is seeded from the clock.
func NewCanned(rnd *rand.Rand) *Canned {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Canned{rnd: rnd}
}

// Name returns the provider name.
func (c *Canned) Name() string {
	return ProviderCanned
}

// Generate implements Provider.
func (c *Canned) Generate(ctx context.Context, req *Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pool, ok := cannedResponses[req.Mode]
	if !ok {
		pool = defaultResponses
	}

	c.mu.Lock()
	i := c.rnd.Intn(len(pool))
	c.mu.Unlock()
	return pool[i], nil
}

// Static always returns the same text or error. Tests use it to pin responses.
type Static struct {
	Text string
	Err  error
}

// Name returns the provider name.
func (s Static) Name() string {
	return "static"
}

// Generate implements Provider.
func (s Static) Generate(context.Context, *Request) (string, error) {
	return s.Text, s.Err
}
