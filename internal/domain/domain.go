package domain

// RoundID names a phase of the event. Each round owns its own question bank,
// so question IDs are only unique within a round and cross-round references
// must always carry a (round, id) pair.
type RoundID string

const (
	RoundGeneral1 RoundID = "general1"
	RoundBuzzer1  RoundID = "buzzer1"
	RoundGeneral2 RoundID = "general2"
	RoundTopic    RoundID = "topic"
	RoundExtra    RoundID = "extra"
	RoundRapid    RoundID = "rapid"
	RoundJeopardy RoundID = "jeopardy"
)

// Rounds returns every round in presentation order.
func Rounds() []RoundID {
	return []RoundID{
		RoundGeneral1,
		RoundBuzzer1,
		RoundGeneral2,
		RoundTopic,
		RoundExtra,
		RoundRapid,
		RoundJeopardy,
	}
}

func (r RoundID) Valid() bool {
	switch r {
	case RoundGeneral1, RoundBuzzer1, RoundGeneral2, RoundTopic, RoundExtra, RoundRapid, RoundJeopardy:
		return true
	}
	return false
}

// DisplayMode is the state of the audience-facing surface.
type DisplayMode string

const (
	ModeBanner      DisplayMode = "banner"
	ModeQuestion    DisplayMode = "question"
	ModeRapidFire   DisplayMode = "rapidfire"
	ModeScoreboard  DisplayMode = "scoreboard"
	ModeRound       DisplayMode = "round"
	ModeCelebration DisplayMode = "celebration"
	ModeAnswer      DisplayMode = "answer"
	ModeTimer       DisplayMode = "timer"
	ModeAllTopics   DisplayMode = "all-topics"
)

func (m DisplayMode) Valid() bool {
	switch m {
	case ModeBanner, ModeQuestion, ModeRapidFire, ModeScoreboard, ModeRound,
		ModeCelebration, ModeAnswer, ModeTimer, ModeAllTopics:
		return true
	}
	return false
}

type QuestionType string

const (
	QuestionText  QuestionType = "text"
	QuestionImage QuestionType = "image"
	QuestionAudio QuestionType = "audio"
	QuestionVideo QuestionType = "video"
)

// Team is one competing team. Score has no floor; elimination is a separate
// flag and is never implied by score.
type Team struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Members    string `json:"members"`
	Score      int    `json:"score"`
	Color      string `json:"color"`
	Eliminated bool   `json:"eliminated"`
}

// Question is a bank entry. Topic is only meaningful in the topic round,
// Row/Column and the display flags only in jeopardy.
type Question struct {
	ID              int          `json:"id"`
	Text            string       `json:"text"`
	Answer          string       `json:"answer"`
	Points          int          `json:"points"`
	Used            bool         `json:"used"`
	Type            QuestionType `json:"type"`
	Media           string       `json:"media,omitempty"`
	MediaType       string       `json:"mediaType,omitempty"`
	MediaName       string       `json:"mediaName,omitempty"`
	Topic           string       `json:"topic,omitempty"`
	Row             *int         `json:"row,omitempty"`
	Column          *int         `json:"column,omitempty"`
	DisplayAtStart  bool         `json:"displayAtStart,omitempty"`
	ShowTeamChoices bool         `json:"showTeamChoices,omitempty"`
}

// CurrentQuestion is a denormalized snapshot of a bank entry, copied at
// selection time. Later edits to the bank must not retroactively change what
// is on screen, so this is a value copy, never a reference.
type CurrentQuestion struct {
	Round           RoundID      `json:"round"`
	ID              int          `json:"id"`
	Text            string       `json:"text"`
	Answer          string       `json:"answer"`
	Points          int          `json:"points"`
	Used            bool         `json:"used"`
	Type            QuestionType `json:"type"`
	Media           string       `json:"media,omitempty"`
	MediaType       string       `json:"mediaType,omitempty"`
	Row             *int         `json:"row,omitempty"`
	Column          *int         `json:"column,omitempty"`
	DisplayAtStart  bool         `json:"displayAtStart,omitempty"`
	ShowTeamChoices bool         `json:"showTeamChoices,omitempty"`
}

// SnapshotOf copies a bank entry into a current-question snapshot.
func SnapshotOf(round RoundID, q Question) *CurrentQuestion {
	return &CurrentQuestion{
		Round:           round,
		ID:              q.ID,
		Text:            q.Text,
		Answer:          q.Answer,
		Points:          q.Points,
		Used:            q.Used,
		Type:            q.Type,
		Media:           q.Media,
		MediaType:       q.MediaType,
		Row:             copyIntPtr(q.Row),
		Column:          copyIntPtr(q.Column),
		DisplayAtStart:  q.DisplayAtStart,
		ShowTeamChoices: q.ShowTeamChoices,
	}
}

// TimerState is the single-slot question timer. The countdown is anchored:
// remaining time is always recomputed from StartTime and Duration, never
// stored as a live counter.
type TimerState struct {
	Active    bool  `json:"active"`
	Duration  int   `json:"duration"`  // seconds
	Remaining int   `json:"remaining"` // seconds, informational snapshot at save time
	StartTime int64 `json:"startTime"` // unix milliseconds
}

// RapidFireState is an in-flight rapid-fire session. Questions is a snapshot
// taken at start time; mutating the master rapid bank afterwards must not
// affect it.
type RapidFireState struct {
	Active          bool       `json:"active"`
	Questions       []Question `json:"questions"`
	CurrentIndex    int        `json:"currentIndex"`
	StartTime       int64      `json:"startTime"` // unix milliseconds
	Duration        int        `json:"duration"`  // seconds
	TimePerQuestion float64    `json:"timePerQuestion"`
	Paused          bool       `json:"paused"`
	PauseTime       int64      `json:"pauseTime,omitempty"` // unix milliseconds
	SelectedTeam    int        `json:"selectedTeam,omitempty"`
}

// RapidFireSettings is the operator's staged configuration, distinct from the
// in-flight state above.
type RapidFireSettings struct {
	TotalTime       int `json:"totalTime"`
	QuestionCount   int `json:"questionCount"`
	TimePerQuestion int `json:"timePerQuestion"`
}

// Settings holds event branding and the auto-save preference for the data
// file fallback.
type Settings struct {
	EventTitle      string `json:"eventTitle"`
	EventSubtitle   string `json:"eventSubtitle"`
	BannerImage     string `json:"bannerImage"`
	PrimaryColor    string `json:"primaryColor"`
	AccentColor     string `json:"accentColor"`
	AutoSaveEnabled bool   `json:"autoSaveEnabled"`
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
