// Package llm builds classification prompts, invokes text-generation models
// and extracts JSON from their replies.
package llm

import (
	"fmt"
	"strings"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

// Sampling is fixed per mode; the classifier never varies it.
const (
	Temperature float64 = 0.3

	MaxTokensSingle   = 200
	MaxTokensAdvanced = 300
	MaxTokensBatch    = 500

	// MaxBodyChars bounds the body excerpt sent in advanced mode.
	MaxBodyChars = 500

	noPreview = "No preview available"
)

// Prompt is a rendered system instruction and user prompt with the sampling
// configuration for its mode.
type Prompt struct {
	Mode      domain.Mode
	System    string
	User      string
	MaxTokens int
}

// Request converts the prompt into a model call.
func (p Prompt) Request() out.GenerateRequest {
	return out.GenerateRequest{
		SystemInstruction: p.System,
		Prompt:            p.User,
		Temperature:       Temperature,
		MaxOutputTokens:   p.MaxTokens,
	}
}

var categoryList = strings.Join(domain.CategoryNames(), ", ")

var singleSystem = fmt.Sprintf(`You are an expert email classifier. Analyze the given email and classify it into one of these categories: %s.

Respond in JSON format with the following structure:
{
  "category": "one of the categories",
  "confidence": 0.0 to 1.0,
  "reasoning": "brief explanation of why this category was chosen"
}

Consider these guidelines:
- Important: Emails from colleagues, managers, or containing urgent/critical information
- Promotions: Marketing emails, sales offers, discounts, newsletters
- Social: Social media notifications, friend requests, comments
- Marketing: Marketing campaigns, product updates, company announcements
- Spam: Unsolicited emails, phishing attempts, suspicious content
- General: Regular correspondence, receipts, confirmations`, categoryList)

var batchSystem = fmt.Sprintf(`You are an expert email classifier. Classify each email into one of these categories: %s.

Respond in JSON format with an array of objects:
[
  { "index": 1, "category": "category_name", "confidence": 0.0-1.0 },
  ...
]

Guidelines:
- Important: Urgent, from colleagues/managers, critical information
- Promotions: Sales, discounts, marketing offers
- Social: Social media, notifications, friend requests
- Marketing: Company announcements, product updates
- Spam: Unsolicited, phishing, suspicious
- General: Regular correspondence, receipts, confirmations`, categoryList)

var advancedSystem = fmt.Sprintf(`You are an expert email classifier and analyzer. Analyze the given email and provide comprehensive classification.

Respond in JSON format:
{
  "category": "one of the categories",
  "confidence": 0.0-1.0,
  "priority": "high|medium|low",
  "tags": ["tag1", "tag2"],
  "actionRequired": true|false,
  "reasoning": "explanation"
}

Categories: %s

Priority guidelines:
- high: Urgent, from important contacts, requires immediate action
- medium: Regular business, should be addressed soon
- low: Informational, can be addressed later

Tags: Use relevant tags like "invoice", "meeting", "feedback", "urgent", "followup", etc.`, categoryList)

// BuildSinglePrompt renders one email for single-field classification.
func BuildSinglePrompt(e domain.Email) Prompt {
	return Prompt{
		Mode:      domain.ModeSingle,
		System:    singleSystem,
		User:      renderEmail(e, false),
		MaxTokens: MaxTokensSingle,
	}
}

// BuildAdvancedPrompt renders one email, including a truncated body, for
// multi-field classification.
func BuildAdvancedPrompt(e domain.Email) Prompt {
	return Prompt{
		Mode:      domain.ModeAdvanced,
		System:    advancedSystem,
		User:      renderEmail(e, true),
		MaxTokens: MaxTokensAdvanced,
	}
}

// BuildBatchPrompt renders a 1-indexed list of emails. The model's output
// rows are matched back to emails by position, so the list order is the
// contract.
func BuildBatchPrompt(emails []domain.Email) Prompt {
	var sb strings.Builder
	sb.WriteString("Classify these emails:\n\n")
	for i, e := range emails {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. From: %s | Subject: %s", i+1, e.From, e.Subject)
	}
	return Prompt{
		Mode:      domain.ModeBatch,
		System:    batchSystem,
		User:      sb.String(),
		MaxTokens: MaxTokensBatch,
	}
}

func renderEmail(e domain.Email, withBody bool) string {
	preview := e.Snippet
	if preview == "" {
		preview = noPreview
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\nSubject: %s\nPreview: %s", e.From, e.Subject, preview)
	if withBody && e.Body != "" {
		fmt.Fprintf(&sb, "\nBody: %s", truncateRunes(e.Body, MaxBodyChars))
	}
	return strings.TrimSpace(sb.String())
}

// truncateRunes keeps at most n characters without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
