package service

import (
	"github.com/bivex/storekit-manager/internal/domain/valueobject"
)

// Action is what the manager does with a transaction update
type Action int

const (
	// ActionNone leaves the transaction open without notifying
	ActionNone Action = iota
	// ActionComplete reports a purchase outcome
	ActionComplete
	// ActionRestore appends to the active restore session
	ActionRestore
	// ActionDefer reports a transaction awaiting approval and leaves it open
	ActionDefer
)

func (a Action) String() string {
	switch a {
	case ActionComplete:
		return "complete"
	case ActionRestore:
		return "restore"
	case ActionDefer:
		return "defer"
	default:
		return "none"
	}
}

// Decision is the routing outcome for one transaction update
type Decision struct {
	Action  Action
	Success bool
	Finish  bool
}

type routeKey struct {
	state         valueobject.TransactionState
	restoreActive bool
}

var routes = map[routeKey]Decision{
	{valueobject.StateRestored, true}:    {Action: ActionRestore, Success: true, Finish: true},
	{valueobject.StateRestored, false}:   {Action: ActionComplete, Success: true, Finish: true},
	{valueobject.StatePurchased, true}:   {Action: ActionComplete, Success: true, Finish: true},
	{valueobject.StatePurchased, false}:  {Action: ActionComplete, Success: true, Finish: true},
	{valueobject.StateFailed, true}:      {Action: ActionComplete, Success: false, Finish: true},
	{valueobject.StateFailed, false}:     {Action: ActionComplete, Success: false, Finish: true},
	{valueobject.StatePurchasing, true}:  {Action: ActionNone},
	{valueobject.StatePurchasing, false}: {Action: ActionNone},
	{valueobject.StateDeferred, true}:    {Action: ActionDefer},
	{valueobject.StateDeferred, false}:   {Action: ActionDefer},
}

// Route maps a transaction state and whether a restore session is active to
// the action the manager takes. Unknown states are left untouched.
func Route(state valueobject.TransactionState, restoreActive bool) Decision {
	d, ok := routes[routeKey{state, restoreActive}]
	if !ok {
		return Decision{Action: ActionNone}
	}
	return d
}
