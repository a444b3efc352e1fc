package progression

type AwardXPRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required,max=200"`
}

type RejectUpgradeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
