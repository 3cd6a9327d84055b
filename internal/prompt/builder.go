package prompt

import (
	"fmt"
	"math"
	"strings"

	"threadcast/internal/services"
)

// Payload is the instruction pair sent to a completion provider.
type Payload struct {
	System string
	User   string
}

// SectionPlan is the suggested per-section split of a target duration.
type SectionPlan struct {
	Hook      int
	Intro     int
	Explainer int
}

// PlanSections splits target seconds 25% / 25% / 50% across hook, intro and
// explainer. The explainer absorbs rounding so the parts always sum to target.
func PlanSections(target int) SectionPlan {
	if target <= 0 {
		return SectionPlan{}
	}
	quarter := int(math.Round(float64(target) * 0.25))
	return SectionPlan{
		Hook:      quarter,
		Intro:     quarter,
		Explainer: target - 2*quarter,
	}
}

const systemTemplate = `You are an expert short-form video scriptwriter. You turn social media discussion threads into narrated scripts for vertical videos.

Voice: %s (%s).

Every script has exactly three sections:
1. hook: grabs attention in the first seconds
2. intro: gives brief context and setup
3. explainer: breaks down the main content

Output contract: respond with a single JSON object and nothing else. Do not wrap it in markdown, do not add commentary before or after it.`

const userTemplate = `Create a video script from the thread below.

Thread content:
%s

Requirements:
- Target duration: %d seconds in total
- Suggested split: hook %ds, intro %ds, explainer %ds
- Style: %s
- Include visual cues for each section
- Provide key topics and hashtags in metadata

The response must be a JSON object with these fields:
- hook, intro, explainer: objects with "text" (string), "duration_seconds" (number), "visual_cues" (array of strings)
- metadata: object with "total_duration_seconds" (number), "key_topics" (array of strings), "hashtags" (array of strings), "engagement_potential" (string), "target_audience" (string)

JSON Schema:
%s

Respond with the JSON object only.`

// Build renders the system and user instructions for one script request.
// Unknown styles and non-positive durations are configuration errors.
func Build(flattened string, style Style, targetSeconds int) (Payload, error) {
	if !style.Valid() {
		if _, err := ParseStyle(string(style)); err != nil {
			return Payload{}, err
		}
	}
	if targetSeconds <= 0 {
		return Payload{}, services.Wrap(
			services.ErrConfiguration,
			"prompt",
			"build",
			fmt.Sprintf("target duration must be positive, got %d", targetSeconds),
			nil,
		)
	}

	plan := PlanSections(targetSeconds)
	content := strings.TrimSpace(flattened)
	if content == "" {
		content = "(no text captured)"
	}

	return Payload{
		System: fmt.Sprintf(systemTemplate, style, style.Tone()),
		User: fmt.Sprintf(userTemplate,
			content,
			targetSeconds,
			plan.Hook, plan.Intro, plan.Explainer,
			style,
			ResponseSchema(),
		),
	}, nil
}
