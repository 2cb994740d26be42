package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func promptCtx(state State) PromptContext {
	return PromptContext{
		OrgName:      "City Transit",
		LocationName: "Central Station",
		LocationType: "transit_hub",
		SessionID:    "s-1",
		State:        state,
		Progress:     "4 messages so far",
		MessageCount: 4,
	}
}

func TestBuildSystemPrompt_Preamble(t *testing.T) {
	prompt := BuildSystemPrompt(promptCtx(StateGreeter))

	assert.Contains(t, prompt, "City Transit")
	assert.Contains(t, prompt, "Central Station")
	assert.Contains(t, prompt, fmt.Sprintf("Maximum %d messages", MaxSessionMessages))
	assert.Contains(t, prompt, "Never ask for personal information")
	assert.Contains(t, prompt, "Never reveal you are an AI")
	assert.Contains(t, prompt, "under 60 words")
	assert.Contains(t, prompt, "ONE question per message")
}

func TestBuildSystemPrompt_StateBlocks(t *testing.T) {
	tests := []struct {
		state    State
		fragment string
	}{
		{StateGreeter, "Ask for consent"},
		{StateInterviewer, "primary issue"},
		{StateInterviewer, "4 messages so far"},
		{StateClarifier, "ONE clarifying question"},
		{StateSensitiveHandler, "STOP collecting feedback"},
		{StateSensitiveHandler, "iCall India"},
		{StateCloser, "Thank the user genuinely"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state)+"/"+tt.fragment, func(t *testing.T) {
			prompt := BuildSystemPrompt(promptCtx(tt.state))
			assert.Contains(t, prompt, tt.fragment)
		})
	}
}

func TestBuildSystemPrompt_EndedHasNoInstructions(t *testing.T) {
	ended := BuildSystemPrompt(promptCtx(StateEnded))
	greeter := BuildSystemPrompt(promptCtx(StateGreeter))

	// ENDED yields the bare preamble only.
	assert.Equal(t, strings.TrimSpace(ended), basePreamble(promptCtx(StateEnded)))
	assert.NotEqual(t, greeter, ended)
}

func TestBuildSystemPrompt_Pure(t *testing.T) {
	ctx := promptCtx(StateInterviewer)
	assert.Equal(t, BuildSystemPrompt(ctx), BuildSystemPrompt(ctx))
}
