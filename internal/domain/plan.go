package domain

// DecisionKind 是对单个 addon 的处理结论。
type DecisionKind string

const (
	DecisionNone          DecisionKind = "NONE"
	DecisionUpdateOnly    DecisionKind = "UPDATE_ONLY"
	DecisionUpdateAndMove DecisionKind = "UPDATE_AND_MOVE"
	DecisionMoveOnly      DecisionKind = "MOVE_ONLY"
)

// 未匹配（或无需动作）的原因。
const (
	ReasonBadJSON   = "bad_json"
	ReasonNoICAO    = "no_icao"
	ReasonNoVersion = "no_version"
	ReasonNoMatch   = "no_match"
	ReasonNoop      = "noop"
)

func (k DecisionKind) NeedsUpdate() bool {
	return k == DecisionUpdateOnly || k == DecisionUpdateAndMove
}

func (k DecisionKind) NeedsMove() bool {
	return k == DecisionMoveOnly || k == DecisionUpdateAndMove
}

// DecisionFor 把两个独立需求组合成 DecisionKind。
func DecisionFor(needUpdate, needMove bool) DecisionKind {
	switch {
	case needUpdate && needMove:
		return DecisionUpdateAndMove
	case needUpdate:
		return DecisionUpdateOnly
	case needMove:
		return DecisionMoveOnly
	default:
		return DecisionNone
	}
}

// Decision 是 resolver 的输出（派生值，从不落盘）。
type Decision struct {
	Kind    DecisionKind
	Matched bool
	Reason  string // Kind==NONE 时说明原因

	Tag  string // 命中的 feed tag
	Dest string // 需要移动时的目标目录
}
