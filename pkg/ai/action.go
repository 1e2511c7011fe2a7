// Package ai implements the AI text-action pipeline: action prompts,
// request fingerprinting, response memoization, and the streaming client
// for the model backend.
package ai

import (
	"fmt"
	"os"
	"strings"
)

// Action identifies one AI text action.
type Action string

const (
	ActionSummarize Action = "summarize"
	ActionAsk       Action = "ask"
	ActionRewrite   Action = "rewrite"
	ActionFix       Action = "fix"
	ActionImprove   Action = "improve"
	ActionHeading   Action = "heading"
)

// Actions lists every recognized action.
var Actions = []Action{ActionSummarize, ActionAsk, ActionRewrite, ActionFix, ActionImprove, ActionHeading}

// ParseAction validates a wire-level action string.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Actions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// RequiresQuestion reports whether the action cannot run without a question.
func (a Action) RequiresQuestion() bool {
	return a == ActionAsk
}

var defaultPrompts = map[Action]string{
	ActionSummarize: "Summarize the following note in 4-5 sentences:\n\n{content}",
	ActionAsk:       "Given the following note, answer the user's question as clearly as possible.\n\nNote:\n{content}\n\nQuestion: {question}\nAnswer:",
	ActionRewrite:   "Rewrite the following note to be clearer, more concise, and engaging:\n\n{content}",
	ActionImprove:   "Suggest improvements for the following note. List specific suggestions for clarity, grammar, and style:\n\n{content}",
	ActionFix:       "Correct any grammar, spelling, or punctuation errors in the following note. Return the corrected note only:\n\n{content}",
	ActionHeading:   "Generate a concise, relevant, and engaging title for the following note. Return only the title:\n\n{content}",
}

// PromptSet maps actions to their prompt templates. Templates use the
// placeholders {content} and, for ask, {question}.
type PromptSet map[Action]string

// LoadPrompts returns the prompt templates, with per-action overrides taken
// from AI_PROMPT_<ACTION> environment variables when set.
func LoadPrompts() PromptSet {
	prompts := make(PromptSet, len(defaultPrompts))
	for action, template := range defaultPrompts {
		envKey := "AI_PROMPT_" + strings.ToUpper(string(action))
		if override := os.Getenv(envKey); override != "" {
			prompts[action] = override
		} else {
			prompts[action] = template
		}
	}
	return prompts
}

// BuildPrompt substitutes content and question into the action's template.
// For rewrite, a question doubles as an extra instruction appended to the
// prompt; other non-ask actions ignore it.
func (p PromptSet) BuildPrompt(action Action, content, question string) (string, error) {
	template, ok := p[action]
	if !ok {
		return "", fmt.Errorf("no prompt template for action %q", action)
	}

	prompt := strings.ReplaceAll(template, "{content}", content)
	switch {
	case action == ActionAsk:
		prompt = strings.ReplaceAll(prompt, "{question}", question)
	case action == ActionRewrite && question != "":
		prompt += "\n\nAdditional instruction: " + question
	}
	return prompt, nil
}
