package reflux

import "testing"

func TestSignalNames(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{string(RuntimeStarted.Name()), "reflux.runtime.started"},
		{string(RuntimeStopped.Name()), "reflux.runtime.stopped"},
		{string(ActionDispatched.Name()), "reflux.action.dispatched"},
		{string(TransitionCommitted.Name()), "reflux.transition.committed"},
		{string(TransitionRejected.Name()), "reflux.transition.rejected"},
		{string(NavigationFailed.Name()), "reflux.navigation.failed"},
		{string(RenderFailed.Name()), "reflux.render.failed"},
		{string(PatchApplied.Name()), "reflux.render.patch.applied"},
		{string(MiddlewareTiming.Name()), "reflux.middleware.timing"},
		{string(MessageThrottled.Name()), "reflux.middleware.throttled"},
		{string(TimerStarted.Name()), "reflux.timer.started"},
		{string(TimerFired.Name()), "reflux.timer.fired"},
		{string(TimerExhausted.Name()), "reflux.timer.exhausted"},
		{string(TimerRemoved.Name()), "reflux.timer.removed"},
		{string(SourceFailed.Name()), "reflux.source.failed"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("expected name %q, got %q", c.want, c.got)
		}
	}
}
