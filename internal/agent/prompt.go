package agent

import "fmt"

// PromptContext carries everything the prompt builder needs for one turn.
type PromptContext struct {
	OrgName      string
	LocationName string
	LocationType string
	SessionID    string
	State        State
	Progress     string // e.g. "4 messages so far"
	MessageCount int
}

// BuildSystemPrompt composes the generation directive for the current turn:
// the behavioral preamble plus the instruction block for the active state.
func BuildSystemPrompt(ctx PromptContext) string {
	return basePreamble(ctx) + "\n\n" + stateBlock(ctx)
}

func basePreamble(ctx PromptContext) string {
	return fmt.Sprintf(`You are a feedback assistant for %s, deployed at %s.
You collect structured visitor feedback through natural conversation.
RULES: Maximum %d messages total per session. Never ask for personal information.
Never reveal you are an AI or automated system. Respond in the same language the user uses.
Keep responses under 60 words. Ask only ONE question per message.`,
		ctx.OrgName, ctx.LocationName, MaxSessionMessages)
}

// stateBlock is an exhaustive switch over State so adding a state is a
// compile-visible change here, not a silent map miss.
func stateBlock(ctx PromptContext) string {
	switch ctx.State {
	case StateGreeter:
		return `Welcome the visitor warmly in ONE message. State you want to ask a few quick questions
about their experience (takes 2 minutes, anonymous). Ask for consent at the end.
If they decline: thank them and end. If they agree: proceed to questions.`

	case StateInterviewer:
		return fmt.Sprintf(`Extract feedback covering: (1) primary issue, (2) root cause, (3) frequency,
(4) severity, (5) any additional context. Ask one question per message.
Adapt to what they've already said. Progress: %s.
After covering all areas OR after 5 question-answer exchanges: wrap up.`, ctx.Progress)

	case StateClarifier:
		return `Ask ONE clarifying question to better understand the feedback category.
After their response, immediately wrap up. No follow-ups.`

	case StateSensitiveHandler:
		return `STOP collecting feedback. Acknowledge the user warmly.
Mention: iCall India 9152987821, Vandrevala Foundation 1860-2662-345.
Keep under 80 words. Be human. End the session after this message.`

	case StateCloser:
		return `Thank the user genuinely (not corporate). Tell them their feedback reaches the team.
Under 50 words. End the conversation.`

	case StateEnded:
		return ""

	default:
		return ""
	}
}
