package model

// ================ Config ================
type ConversationConfig struct {
	TTL     string `envconfig:"CONVERSATION_TTL" default:"720h"`
	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"10"`
	}
}

type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"64"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.0"`
}

type ComposerModelConfig struct {
	Model       string  `envconfig:"COMPOSER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"COMPOSER_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"COMPOSER_TEMPERATURE" default:"0.4"`
}

type WorkflowConfig struct {
	// IdleAfter is how long a service may sit without activity before the
	// optimize workflow classifies it as idle.
	IdleAfter string `envconfig:"WORKFLOW_IDLE_AFTER" default:"168h"`
	// UtilizationThreshold is the memory-utilization fraction below which a
	// running service counts as underutilized.
	UtilizationThreshold float64 `envconfig:"WORKFLOW_UTILIZATION_THRESHOLD" default:"0.30"`
	// StepTimeout bounds each external collaborator call made by a step.
	StepTimeout string `envconfig:"WORKFLOW_STEP_TIMEOUT" default:"15s"`
	// LLMTimeout bounds a single language-model call; model latency can be
	// several seconds so this is deliberately generous.
	LLMTimeout string `envconfig:"WORKFLOW_LLM_TIMEOUT" default:"30s"`
	// ConfirmationTTL is how long a run may sit in awaiting_confirmation
	// before the engine forgets it.
	ConfirmationTTL string `envconfig:"WORKFLOW_CONFIRMATION_TTL" default:"30m"`
}

type QuickSpinConfig struct {
	APIURL  string `envconfig:"QUICKSPIN_API_URL" default:"https://api.quickspin.io"`
	Timeout int    `envconfig:"QUICKSPIN_TIMEOUT_SECONDS" default:"10"`
}

type KubeConfig struct {
	Kubeconfig string `envconfig:"KUBECONFIG_PATH" default:"~/.kube/config"`
	InCluster  bool   `envconfig:"K8S_IN_CLUSTER" default:"false"`
	Namespace  string `envconfig:"K8S_NAMESPACE" default:"quickspin-services"`
}
