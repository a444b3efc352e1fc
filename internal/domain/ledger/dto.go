package ledger

// PointsRequest for POST /admin/points/award and /admin/points/spend
type PointsRequest struct {
	AccountID       string `json:"account_id" validate:"required,uuid"`
	Amount          int64  `json:"amount" validate:"gt=0"`
	Reason          string `json:"reason" validate:"required,max=255"`
	RelatedEntityID string `json:"related_entity_id" validate:"omitempty,max=255"`
}

// MissionRequest for POST /admin/points/missions/{id}/complete
type MissionRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Points    int64  `json:"points" validate:"gt=0,lte=100000"`
}

// ConvertRequest for POST /points/convert
type ConvertRequest struct {
	Points int64 `json:"points" validate:"gt=0"`
}
