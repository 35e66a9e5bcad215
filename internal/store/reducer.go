package store

import (
	"github.com/Rorical/RoriRoles/internal/models"
)

// Reduce is the transition function over ApplicationState. It performs no
// I/O and panics with *UnknownActionError on an action it does not know.
func Reduce(state models.ApplicationState, action Action) models.ApplicationState {
	switch a := action.(type) {
	case AsyncStart:
		state.Loading = true
		state.LoadingMessage = a.Message
		state.Error = ""
	case AsyncComplete:
		if a.Payload != nil {
			a.Payload.apply(&state)
		}
		state.Loading = false
		state.LoadingMessage = ""
		state.Error = ""
	case AsyncError:
		state.Loading = false
		state.LoadingMessage = ""
		state.Error = a.Message
	case Error:
		state.Loading = false
		state.LoadingMessage = ""
		state.Error = a.Message
	case TokenSelected:
		state.Delegates = nil
		state.Records = nil
		state.PMEnabled = nil
		state.Error = ""
		state.Features = nil
	case AsyncSettled:
		state.Loading = false
		state.LoadingMessage = ""
	default:
		panic(&UnknownActionError{Action: action})
	}
	return state
}
