package prompt

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

// ResponseShape documents the object the provider is asked to return. It is
// only used to render the JSON Schema embedded in the user instruction; parsing
// of real responses is tolerant and lives with the script package.
type ResponseShape struct {
	Hook      SectionShape  `json:"hook" jsonschema_description:"Attention-grabbing opening that stops the scroll"`
	Intro     SectionShape  `json:"intro" jsonschema_description:"Brief context and setup for the topic"`
	Explainer SectionShape  `json:"explainer" jsonschema_description:"Main content breakdown"`
	Metadata  MetadataShape `json:"metadata"`
}

// SectionShape is one narrated section.
type SectionShape struct {
	Text            string   `json:"text" jsonschema_description:"Narration spoken during this section"`
	DurationSeconds float64  `json:"duration_seconds" jsonschema_description:"Spoken length of this section in seconds"`
	VisualCues      []string `json:"visual_cues" jsonschema_description:"On-screen visual suggestions for this section"`
}

// MetadataShape carries summary fields about the whole script.
type MetadataShape struct {
	TotalDurationSeconds float64  `json:"total_duration_seconds" jsonschema_description:"Sum of the three section durations"`
	KeyTopics            []string `json:"key_topics" jsonschema_description:"Main topics covered by the script"`
	Hashtags             []string `json:"hashtags" jsonschema_description:"Relevant hashtags, each starting with #"`
	EngagementPotential  string   `json:"engagement_potential" jsonschema:"enum=low,enum=medium,enum=high"`
	TargetAudience       string   `json:"target_audience" jsonschema_description:"Who the video is for"`
}

var responseSchema = sync.OnceValue(func() string {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(ResponseShape{})
	// Drop $schema/$id noise; the model only needs the structure.
	schema.Version = ""
	schema.ID = ""
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
})

// ResponseSchema returns the JSON Schema of the expected response object.
func ResponseSchema() string {
	return responseSchema()
}
