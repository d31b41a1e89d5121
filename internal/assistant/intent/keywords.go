package intent

import (
	"strings"

	"github.com/quickspin-labs/assistant/internal/assistant/knowledge"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
)

// Keyword rules mirror the classifier's label set. Provision wins ties with
// connection and troubleshooting rules; order matters.
var keywordRules = []struct {
	intent model.Intent
	words  []string
}{
	{model.IntentProvisionService, []string{"create", "provision", "need", "want", "set up", "setup", "spin up", "deploy"}},
	{model.IntentGetConnectionInfo, []string{"connect", "connection", "credentials", "connection string"}},
	{model.IntentTroubleshoot, []string{"problem", "issue", "error", "broken", "not working", "slow", "down", "failing", "timeout"}},
	{model.IntentOptimizeCosts, []string{"cost", "bill", "expensive", "save money", "optimize", "spending"}},
	{model.IntentGetServiceInfo, []string{"status", "show me", "list my", "details"}},
}

func classifyKeywords(message string) model.Intent {
	lower := strings.ToLower(message)
	for _, rule := range keywordRules {
		for _, w := range rule.words {
			if containsWord(lower, w) {
				return rule.intent
			}
		}
	}
	return model.IntentGeneralQuestion
}

// containsWord reports whether phrase occurs in s on word boundaries, so
// "down" does not fire on "download". Both arguments must be lowercase.
func containsWord(s, phrase string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		from = start + 1
	}
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}

// DetectServiceType scans the message for a known service type name. The
// empty string means none was mentioned.
func DetectServiceType(message string) model.ServiceType {
	lower := strings.ToLower(message)
	for _, st := range model.KnownServiceTypes {
		if containsWord(lower, string(st)) {
			return st
		}
	}
	return ""
}

// KnowledgeCategory maps an intent to the knowledge base category most likely
// to hold relevant snippets.
func KnowledgeCategory(it model.Intent) knowledge.Category {
	switch it {
	case model.IntentProvisionService, model.IntentGetConnectionInfo:
		return knowledge.CategorySetup
	case model.IntentTroubleshoot:
		return knowledge.CategoryCommonIssues
	case model.IntentOptimizeCosts:
		return knowledge.CategoryOptimization
	default:
		return knowledge.CategoryAny
	}
}
