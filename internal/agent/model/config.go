package model

// ================ Config ================

type RouterModelConfig struct {
	Model       string  `envconfig:"ROUTER_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"ROUTER_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"ROUTER_TEMPERATURE" default:"0.0"`
}

type GraderModelConfig struct {
	Model       string  `envconfig:"GRADER_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"GRADER_MAX_TOKENS" default:"64"`
	Temperature float32 `envconfig:"GRADER_TEMPERATURE" default:"0.0"`
}

type AnswerModelConfig struct {
	Model       string  `envconfig:"ANSWER_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"ANSWER_MAX_TOKENS" default:"2048"`
	Temperature float32 `envconfig:"ANSWER_TEMPERATURE" default:"0.4"`
}

type ConversationConfig struct {
	TTL       string `envconfig:"CONVERSATION_TTL" default:"15m"`
	Retrieval struct {
		TopK int `envconfig:"CONVERSATION_RETRIEVAL_TOP_K" default:"4"`
	}
	Rewrites struct {
		Max int `envconfig:"CONVERSATION_MAX_REWRITES" default:"2"`
	}
}

// PersonaConfig controls the voice of the final answer. The defaults
// reproduce the archive author this agent speaks as.
type PersonaConfig struct {
	Name   string `envconfig:"PERSONA_NAME" default:"Aajonus Vonderplanitz"`
	Corpus string `envconfig:"PERSONA_CORPUS" default:"your published works, lectures, and documented teachings"`
}
