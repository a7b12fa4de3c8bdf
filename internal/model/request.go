package model

type AddChipRequest struct {
	Label string `json:"label" binding:"required"`
}

type SetTopicRequest struct {
	Topic string `json:"topic"`
}

type SwitchModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// GenerateRequest 为空 selection 时使用当前模式的输入（话题输入框内容）
type GenerateRequest struct {
	Selection string `json:"selection"`
}

type ChatStreamQuery struct {
	Label    string `form:"label" binding:"required"`
	Interval string `form:"interval"`
}
