// Package types provides shared types for the planner service.
package types

// TaskType identifies an entry in the task catalog.
type TaskType string

const (
	TaskLaunchBrowser          TaskType = "LAUNCH_BROWSER"
	TaskPageToHTML             TaskType = "PAGE_TO_HTML"
	TaskExtractTextFromElement TaskType = "EXTRACT_TEXT_FROM_ELEMENT"
	TaskFillInput              TaskType = "FILL_INPUT"
	TaskClickElement           TaskType = "CLICK_ELEMENT"
	TaskWaitForElement         TaskType = "WAIT_FOR_ELEMENT"
	TaskNavigateURL            TaskType = "NAVIGATE_URL"
	TaskScrollToElement        TaskType = "SCROLL_TO_ELEMENT"
	TaskDeliverViaWebhook      TaskType = "DELIVER_VIA_WEBHOOK"
	TaskExtractDataWithAI      TaskType = "EXTRACT_DATA_WITH_AI"
	TaskReadPropertyFromJSON   TaskType = "READ_PROPERTY_FROM_JSON"
	TaskAddPropertyToJSON      TaskType = "ADD_PROPERTY_TO_JSON"
	TaskBranch                 TaskType = "BRANCH"
)

// TaskParamType is the semantic type of a task port.
type TaskParamType string

const (
	ParamString          TaskParamType = "STRING"
	ParamBrowserInstance TaskParamType = "BROWSER_INSTANCE"
	ParamSelect          TaskParamType = "SELECT"
	ParamCredential      TaskParamType = "CREDENTIAL"
	ParamConditional     TaskParamType = "CONDITIONAL"
)

// ParamTypes lists every param type in declaration order.
var ParamTypes = []TaskParamType{
	ParamString,
	ParamBrowserInstance,
	ParamSelect,
	ParamCredential,
	ParamConditional,
}

// IsValid reports whether t is one of the known param types.
func (t TaskParamType) IsValid() bool {
	switch t {
	case ParamString, ParamBrowserInstance, ParamSelect, ParamCredential, ParamConditional:
		return true
	default:
		return false
	}
}

// PropagatesValue reports whether a port of this type carries a value
// downstream. Conditional ports only gate execution.
func (t TaskParamType) PropagatesValue() bool {
	return t != ParamConditional
}
