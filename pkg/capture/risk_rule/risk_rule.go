package riskrule

import "github.com/joripage/fixsim/pkg/capture/model"

// RiskRule is a pre-send check on a new order request.
type RiskRule interface {
	Check(req *model.NewOrderRequest) error
}
