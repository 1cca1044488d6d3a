package domain

const (
	EventNameDocumentUpdated    = "document.updated"
	EventNameTeamsUpdated       = "teams.updated"
	EventNameDisplayModeChanged = "display.mode_changed"
	EventNameTimerExpired       = "timer.expired"
	EventNameRapidFireEnded     = "rapidfire.ended"
)

// UpdateSource says which path produced a document update. The replica source
// means the whole document was reloaded from storage after a cross-context
// notification; mutation means a local store operation committed.
type UpdateSource string

const (
	SourceMutation UpdateSource = "mutation"
	SourceReplica  UpdateSource = "replica"
	SourceImport   UpdateSource = "import"
)

type EventDocumentUpdated struct {
	Revision string
	Source   UpdateSource
}

func (EventDocumentUpdated) Name() string { return EventNameDocumentUpdated }

type EventTeamsUpdated struct {
	Action string // added, updated, deleted, reset
	TeamID int
}

func (EventTeamsUpdated) Name() string { return EventNameTeamsUpdated }

type EventDisplayModeChanged struct {
	Previous DisplayMode
	Mode     DisplayMode
}

func (EventDisplayModeChanged) Name() string { return EventNameDisplayModeChanged }

// TimerKind distinguishes the two independent countdowns.
type TimerKind string

const (
	TimerQuestion  TimerKind = "question"
	TimerRapidFire TimerKind = "rapidfire"
)

type EventTimerExpired struct {
	Kind TimerKind
}

func (EventTimerExpired) Name() string { return EventNameTimerExpired }

type EventRapidFireEnded struct {
	QuestionsShown int
	Stopped        bool // true when the operator aborted instead of the round completing
}

func (EventRapidFireEnded) Name() string { return EventNameRapidFireEnded }
