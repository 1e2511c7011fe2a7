package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	for _, known := range Actions {
		a, err := ParseAction(string(known))
		require.NoError(t, err)
		assert.Equal(t, known, a)
	}

	a, err := ParseAction("  Summarize ")
	require.NoError(t, err)
	assert.Equal(t, ActionSummarize, a)

	_, err = ParseAction("translate")
	assert.Error(t, err)
	_, err = ParseAction("")
	assert.Error(t, err)
}

func TestBuildPrompt_ContentSubstitution(t *testing.T) {
	prompts := LoadPrompts()

	prompt, err := prompts.BuildPrompt(ActionSummarize, "The quick brown fox.", "")
	require.NoError(t, err)
	assert.Contains(t, prompt, "The quick brown fox.")
	assert.NotContains(t, prompt, "{content}")
}

func TestBuildPrompt_AskSubstitutesQuestion(t *testing.T) {
	prompts := LoadPrompts()

	prompt, err := prompts.BuildPrompt(ActionAsk, "Note body.", "What is this about?")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Note body.")
	assert.Contains(t, prompt, "What is this about?")
	assert.NotContains(t, prompt, "{question}")
}

func TestBuildPrompt_RewriteExtraInstruction(t *testing.T) {
	prompts := LoadPrompts()

	plain, err := prompts.BuildPrompt(ActionRewrite, "Note body.", "")
	require.NoError(t, err)
	assert.NotContains(t, plain, "Additional instruction")

	withHint, err := prompts.BuildPrompt(ActionRewrite, "Note body.", "make it formal")
	require.NoError(t, err)
	assert.Contains(t, withHint, "Additional instruction: make it formal")
}

func TestBuildPrompt_OtherActionsIgnoreQuestion(t *testing.T) {
	prompts := LoadPrompts()

	prompt, err := prompts.BuildPrompt(ActionFix, "Note body.", "ignored")
	require.NoError(t, err)
	assert.False(t, strings.Contains(prompt, "ignored"))
}

func TestLoadPrompts_EnvOverride(t *testing.T) {
	t.Setenv("AI_PROMPT_HEADING", "Title this: {content}")

	prompts := LoadPrompts()
	prompt, err := prompts.BuildPrompt(ActionHeading, "body", "")
	require.NoError(t, err)
	assert.Equal(t, "Title this: body", prompt)
}

func TestRequiresQuestion(t *testing.T) {
	assert.True(t, ActionAsk.RequiresQuestion())
	for _, a := range []Action{ActionSummarize, ActionRewrite, ActionFix, ActionImprove, ActionHeading} {
		assert.False(t, a.RequiresQuestion(), "action %s", a)
	}
}
