package workflow

import "github.com/frahmantamala/expense-approval/internal"

var ErrOutOfOrder = internal.NewOutOfOrderError("Approval request is not at the expense's current step", internal.ErrCodeOutOfOrder)
