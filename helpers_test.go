package reflux

import (
	"testing"
	"time"
)

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

type counter struct {
	Value int
}

type msg int

type cmd string

func add(s counter, m msg) (Transition[counter, cmd], bool) {
	if m == 0 {
		return Reject[counter, cmd]()
	}
	return Next[counter, cmd](counter{Value: s.Value + int(m)})
}
