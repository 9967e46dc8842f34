package decorator

// State is a step of a decoration run.
type State string

const (
	StateInit                State = "INIT"
	StateAwaitAnalysisResult State = "AWAIT_ANALYSIS_RESULT"
	StateFetchRemoteFiles    State = "FETCH_REMOTE_FILES"
	StateMatchAndCollect     State = "MATCH_AND_COLLECT"
	StateSubmit              State = "SUBMIT"
	StateDone                State = "DONE"
	StateAborted             State = "ABORTED"
)

// Terminal reports whether no further transition can follow the state.
func (state State) Terminal() bool {
	return state == StateDone || state == StateAborted
}
