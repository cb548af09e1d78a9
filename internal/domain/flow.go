package domain

// FlowStep is the position of a buyer in the guided purchase flow.
type FlowStep string

const (
	FlowStepRouter   FlowStep = "ROUTER"
	FlowStepDataPlan FlowStep = "DATA_PLAN"
	FlowStepReview   FlowStep = "REVIEW"
	FlowStepCheckout FlowStep = "CHECKOUT"
)

var flowOrder = map[FlowStep]int{
	FlowStepRouter:   1,
	FlowStepDataPlan: 2,
	FlowStepReview:   3,
	FlowStepCheckout: 4,
}

func (s FlowStep) Number() int {
	if n, ok := flowOrder[s]; ok {
		return n
	}
	return flowOrder[FlowStepRouter]
}

func (s FlowStep) String() string {
	return string(s)
}

// FlowOptions are the variant switches of the purchase flow.
type FlowOptions struct {
	ShowProgressIndicator bool `json:"show_progress_indicator"`
	CollectPhone          bool `json:"collect_phone"`
}

type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Progress returns the indicator for step, or nil when the indicator is off.
func (o FlowOptions) Progress(step FlowStep) *Progress {
	if !o.ShowProgressIndicator {
		return nil
	}
	return &Progress{Current: step.Number(), Total: len(flowOrder)}
}
