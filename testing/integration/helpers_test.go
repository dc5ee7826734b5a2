package integration

import (
	"strconv"
	"testing"
	"time"

	"github.com/zoobzio/reflux"
	"github.com/zoobzio/reflux/view"
)

// waitFor polls a condition until it returns true or timeout is reached.
// Uses short polling intervals for fast tests with reliable results.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

type ledger struct {
	Balance int   `json:"balance"`
	Entries []int `json:"entries"`
}

type note string

// post rejects zero amounts and emits a note for large ones.
func post(s ledger, amount int) (reflux.Transition[ledger, note], bool) {
	if amount == 0 {
		return reflux.Reject[ledger, note]()
	}
	next := ledger{
		Balance: s.Balance + amount,
		Entries: append(append([]int(nil), s.Entries...), amount),
	}
	if amount >= 100 {
		return reflux.NextWith(next, note("large entry "+strconv.Itoa(amount)))
	}
	return reflux.Next[ledger, note](next)
}

var (
	rowKind     = &view.Kind{Name: "row", Props: []view.Field{{Name: "amount"}}}
	summaryKind = &view.Kind{Name: "summary", Props: []view.Field{{Name: "balance"}}}
	listKind    = &view.Kind{Name: "list"}
)

func ledgerView(s ledger) *view.Node {
	list := view.New(listKind, "entries")
	for i, e := range s.Entries {
		list.Append(view.New(rowKind, strconv.Itoa(i)).Prop("amount", e))
	}
	return view.New(listKind, "").
		Append(view.New(summaryKind, "summary").Prop("balance", s.Balance)).
		Append(list)
}
