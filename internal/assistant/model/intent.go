package model

// Intent classifies a user message into one of the assistant's fixed action
// categories. Classification happens once per turn; the result is immutable
// for that turn.
type Intent string

const (
	IntentProvisionService  Intent = "provision_service"
	IntentGetServiceInfo    Intent = "get_service_info"
	IntentTroubleshoot      Intent = "troubleshoot"
	IntentOptimizeCosts     Intent = "optimize_costs"
	IntentGetConnectionInfo Intent = "get_connection_info"
	IntentGeneralQuestion   Intent = "general_question"
)

// String returns the string representation of the intent.
func (i Intent) String() string {
	return string(i)
}

// ParseIntent normalises a raw classifier label into a known intent. Unknown
// labels fall back to general_question: a misclassification routes to the
// default passthrough path, never to an error.
func ParseIntent(v string) Intent {
	switch Intent(v) {
	case IntentProvisionService:
		return IntentProvisionService
	case IntentGetServiceInfo:
		return IntentGetServiceInfo
	case IntentTroubleshoot:
		return IntentTroubleshoot
	case IntentOptimizeCosts:
		return IntentOptimizeCosts
	case IntentGetConnectionInfo:
		return IntentGetConnectionInfo
	default:
		return IntentGeneralQuestion
	}
}
