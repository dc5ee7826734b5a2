package reflux

// Presentation selects how a Navigator shows a route.
type Presentation int

const (
	// Push places the route on the current navigation stack.
	Push Presentation = iota
	// Present shows the route modally above the current navigator.
	Present
)

// String returns the string representation of the presentation.
func (p Presentation) String() string {
	switch p {
	case Push:
		return "push"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// Route identifies a destination for the navigation collaborator.
type Route struct {
	Name         string
	Params       map[string]string
	Presentation Presentation
}

// Action is a top-level event fed to the Runtime. It is a closed union of
// Send, Navigate, NavigateBack and Dismiss; routing goes through Apply so
// every ActionHandler must handle every variant.
type Action[M any] interface {
	Apply(h ActionHandler[M])
}

// ActionHandler receives exactly one call per applied Action.
type ActionHandler[M any] interface {
	SendMessage(msg M)
	Navigate(to Route)
	NavigateBack()
	DismissNavigator(then Action[M])
}

// Send delivers a message to the update function.
type Send[M any] struct {
	Message M
}

// Apply implements Action.
func (a Send[M]) Apply(h ActionHandler[M]) { h.SendMessage(a.Message) }

// Navigate moves to a route without invoking the update function.
type Navigate[M any] struct {
	To Route
}

// Apply implements Action.
func (a Navigate[M]) Apply(h ActionHandler[M]) { h.Navigate(a.To) }

// NavigateBack returns to the previous route.
type NavigateBack[M any] struct{}

// Apply implements Action.
func (NavigateBack[M]) Apply(h ActionHandler[M]) { h.NavigateBack() }

// Dismiss dismisses the current modal navigator and, when Then is non-nil,
// dispatches Then once the dismissal has completed.
type Dismiss[M any] struct {
	Then Action[M]
}

// Apply implements Action.
func (a Dismiss[M]) Apply(h ActionHandler[M]) { h.DismissNavigator(a.Then) }

// SendMessage returns an Action delivering msg.
func SendMessage[M any](msg M) Action[M] {
	return Send[M]{Message: msg}
}

// NavigateTo returns an Action navigating to route.
func NavigateTo[M any](route Route) Action[M] {
	return Navigate[M]{To: route}
}

// Back returns an Action navigating to the previous route.
func Back[M any]() Action[M] {
	return NavigateBack[M]{}
}

// DismissNavigator returns an Action dismissing the current navigator.
func DismissNavigator[M any]() Action[M] {
	return Dismiss[M]{}
}

// DismissThen returns an Action dismissing the current navigator and then
// dispatching then.
func DismissThen[M any](then Action[M]) Action[M] {
	return Dismiss[M]{Then: then}
}
