package form

// State 表单控制器状态
type State int

const (
	StateIdle       State = iota // 初始状态，没有任何输入
	StateEditing                 // 用户正在编辑
	StateSubmitting              // 提交请求进行中
	StateSuccess                 // 最近一次提交成功
	StateFailed                  // 最近一次提交失败，可重新提交
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
