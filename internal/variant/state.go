package variant

// State is a step of a variant build.
//
//	Configured -> Composing -> Compiling -> Done
//	                                     -> CollectingObjects -> Archiving -> CopyingHeader -> Done
//
// Any step may move to Failed; nothing runs after that.
type State int

const (
	Configured State = iota
	Composing
	Compiling
	CollectingObjects
	Archiving
	CopyingHeader
	Done
	Failed
)

var stateNames = [...]string{
	Configured:        "configured",
	Composing:         "composing",
	Compiling:         "compiling",
	CollectingObjects: "collecting-objects",
	Archiving:         "archiving",
	CopyingHeader:     "copying-header",
	Done:              "done",
	Failed:            "failed",
}

func (s State) String() string {
	if s < Configured || s > Failed {
		return "unknown"
	}
	return stateNames[s]
}
