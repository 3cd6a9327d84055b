package script

import (
	"fmt"
	"math"
	"strings"
	"time"

	"threadcast/internal/textutil"
)

// DefaultTolerance is the accepted relative deviation between the script's
// total duration and the requested target.
const DefaultTolerance = 0.20

const (
	defaultEngagement = "unknown"
	defaultAudience   = "general"
)

var engagementLevels = map[string]struct{}{"low": {}, "medium": {}, "high": {}}

// AssembleOptions tunes Assemble. Zero values select the defaults.
type AssembleOptions struct {
	Tolerance float64
	Now       func() time.Time
}

func (o AssembleOptions) tolerance() float64 {
	if o.Tolerance <= 0 {
		return DefaultTolerance
	}
	return o.Tolerance
}

func (o AssembleOptions) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Assemble builds the final Document. It always returns a complete document;
// problems are reported through Metadata.Warnings.
func Assemble(in Interpretation, req Request, opts AssembleOptions) Document {
	doc := Document{
		Hook:      normalizeSection(in.Sections.Hook),
		Intro:     normalizeSection(in.Sections.Intro),
		Explainer: normalizeSection(in.Sections.Explainer),
		Degraded:  in.Degraded(),
	}
	warnings := []string{}

	sum := doc.Hook.DurationSeconds + doc.Intro.DurationSeconds + doc.Explainer.DurationSeconds
	total := sum
	if in.Metadata.HasTotal && in.Metadata.TotalDurationSeconds > 0 {
		total = in.Metadata.TotalDurationSeconds
		if sum > 0 && relativeDeviation(total, sum) > opts.tolerance() {
			warnings = append(warnings, fmt.Sprintf(
				"declared total %.1fs does not match section sum %.1fs", total, sum))
		}
	}

	if doc.Degraded {
		raw := in.Raw
		doc.RawText = &raw
		warnings = append(warnings, "provider output could not be parsed; sections are empty and raw_text holds the response")
	} else if target := float64(req.TargetDurationSeconds); target > 0 {
		if deviation := relativeDeviation(total, target); deviation > opts.tolerance() {
			warnings = append(warnings, fmt.Sprintf(
				"total duration %.1fs deviates from target %ds by %.0f%% (tolerance %.0f%%)",
				total, req.TargetDurationSeconds, deviation*100, opts.tolerance()*100))
		}
	}

	hashtags := make([]string, 0, len(in.Metadata.Hashtags))
	for _, tag := range in.Metadata.Hashtags {
		if normalized := textutil.Hashtag(tag); normalized != "" {
			hashtags = append(hashtags, normalized)
		}
	}
	topics := make([]string, 0, len(in.Metadata.KeyTopics))
	for _, topic := range in.Metadata.KeyTopics {
		topics = append(topics, textutil.Clean(topic))
	}

	doc.Metadata = Metadata{
		TotalDurationSeconds: roundTenth(total),
		KeyTopics:            textutil.Unique(topics, true),
		Hashtags:             textutil.Unique(hashtags, true),
		EngagementPotential:  engagement(in.Metadata.EngagementPotential),
		TargetAudience:       orDefault(textutil.Clean(in.Metadata.TargetAudience), defaultAudience),
		Style:                req.Style.String(),
		Model:                req.ModelID,
		SourceThreadID:       req.Thread.ID,
		GeneratedAt:          opts.now().UTC().Format(time.RFC3339),
		Warnings:             warnings,
	}
	return doc
}

func normalizeSection(section Section) Section {
	cues := make([]string, 0, len(section.VisualCues))
	for _, cue := range section.VisualCues {
		cues = append(cues, textutil.Clean(cue))
	}
	return Section{
		Text:            textutil.Clean(section.Text),
		DurationSeconds: math.Max(section.DurationSeconds, 0),
		VisualCues:      textutil.Unique(cues, false),
	}
}

func relativeDeviation(value, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return math.Abs(value-reference) / reference
}

func roundTenth(value float64) float64 {
	return math.Round(value*10) / 10
}

func engagement(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := engagementLevels[value]; ok {
		return value
	}
	return defaultEngagement
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
