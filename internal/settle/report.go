package settle

import (
	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

// Rejection records why a candidate was skipped.
type Rejection struct {
	Index int             // position in the candidate batch
	Tx    *tx.Transaction // nil if the candidate itself was nil
	Hash  types.Hash
	Err   error
}

// Rule returns the rule the candidate failed.
func (r Rejection) Rule() Rule {
	return RuleOf(r.Err)
}

// Report describes the outcome of one settlement call.
type Report struct {
	// Accepted holds the committed transactions in candidate order.
	Accepted []*tx.Transaction
	Rejected []Rejection

	Spent  int // pool entries removed
	Minted int // pool entries added

	// Surplus is the total of inputs minus outputs over accepted
	// transactions. It is forfeited: no output receives it.
	Surplus int64
}

// RejectedByRule counts rejections per failed rule.
func (r *Report) RejectedByRule() map[Rule]int {
	counts := make(map[Rule]int)
	for _, rej := range r.Rejected {
		counts[rej.Rule()]++
	}
	return counts
}
