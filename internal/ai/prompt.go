package ai

import (
	"fmt"
	"strings"

	"curatorhub/internal/model"
)

// PromptInput is what a curator fills in when asking for a draft.
type PromptInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Audience    string   `json:"audience"`
	Tone        string   `json:"tone"`
	Keywords    []string `json:"keywords"`
	MaxWords    int      `json:"max_words"`
}

type Prompt struct {
	System string
	User   string
}

const systemPrompt = "You are an assistant to a museum curator. Write accurate, plain prose. Do not invent provenance, dates or lenders."

var kindInstructions = map[model.ContentKind]struct {
	task     string
	words    int
	audience string
}{
	model.ContentLabel:        {"Write a wall label for the object or section below.", 80, "general visitors"},
	model.ContentPressRelease: {"Write a press release announcing the exhibition or event below.", 400, "journalists"},
	model.ContentEducation:    {"Write education material for a guided visit based on the topic below.", 300, "school groups"},
	model.ContentSocial:       {"Write a short social media post promoting the topic below.", 50, "followers of the museum"},
	model.ContentImage:        {"Create an illustrative image for the topic below.", 0, "visitors"},
}

// BuildPrompt assembles the provider prompt for one content kind.
func BuildPrompt(kind model.ContentKind, in PromptInput) Prompt {
	inst, ok := kindInstructions[kind]
	if !ok {
		inst = kindInstructions[model.ContentLabel]
	}

	audience := in.Audience
	if audience == "" {
		audience = inst.audience
	}
	words := in.MaxWords
	if words <= 0 {
		words = inst.words
	}

	var b strings.Builder
	b.WriteString(inst.task)
	b.WriteString("\n\nTitle: ")
	b.WriteString(in.Title)
	if in.Description != "" {
		b.WriteString("\nDetails: ")
		b.WriteString(in.Description)
	}
	b.WriteString("\nAudience: ")
	b.WriteString(audience)
	if in.Tone != "" {
		b.WriteString("\nTone: ")
		b.WriteString(in.Tone)
	}
	if len(in.Keywords) > 0 {
		b.WriteString("\nMention: ")
		b.WriteString(strings.Join(in.Keywords, ", "))
	}
	if words > 0 {
		fmt.Fprintf(&b, "\nLength: at most %d words.", words)
	}

	return Prompt{System: systemPrompt, User: b.String()}
}

// FallbackText is the deterministic draft returned when the provider cannot be reached.
func FallbackText(kind model.ContentKind, in PromptInput) string {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Untitled"
	}
	details := strings.TrimSpace(in.Description)

	var body string
	switch kind {
	case model.ContentPressRelease:
		body = fmt.Sprintf("FOR IMMEDIATE RELEASE\n\n%s\n\n%s\n\nFurther details will follow.", title, details)
	case model.ContentEducation:
		body = fmt.Sprintf("Learning notes: %s\n\nKey points:\n- %s\n\nDiscussion: what does this reveal about its time?", title, details)
	case model.ContentSocial:
		body = fmt.Sprintf("Coming soon: %s. %s", title, details)
	default:
		body = fmt.Sprintf("%s\n\n%s", title, details)
	}
	if len(in.Keywords) > 0 {
		body += "\n\n" + strings.Join(in.Keywords, ", ")
	}
	return strings.TrimSpace(body)
}
