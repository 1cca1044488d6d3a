package domain

import (
	"slices"
	"sort"
	"strings"
)

// SessionDocument is the single shared aggregate for one event. It is owned
// exclusively by the session store; every other component only reads it or
// asks the store for a mutation. The document as a whole is the unit of
// replication: the persisted form is one JSON blob, and the last full write
// always wins.
type SessionDocument struct {
	Revision          string                 `json:"revision,omitempty"`
	Teams             []Team                 `json:"teams"`
	Questions         map[RoundID][]Question `json:"questions"`
	CurrentRound      RoundID                `json:"currentRound,omitempty"`
	CurrentQuestion   *CurrentQuestion       `json:"currentQuestion,omitempty"`
	DisplayMode       DisplayMode            `json:"displayMode"`
	BannerFullscreen  bool                   `json:"bannerFullscreen"`
	Timer             TimerState             `json:"timer"`
	Topics            []string               `json:"topics"`
	TopicPool         []string               `json:"topicPool"`
	TopicQueue        []string               `json:"topicQueue"`
	TopicTurnByTurn   bool                   `json:"topicTurnByTurn"`
	SelectedTopic     string                 `json:"selectedTopic,omitempty"`
	RapidFire         RapidFireState         `json:"rapidFire"`
	RapidFireSettings RapidFireSettings      `json:"rapidFireSettings"`
	RoundRules        map[RoundID]string     `json:"roundRules"`
	Settings          Settings               `json:"settings"`
}

// NewDocument returns a document with every collection present and the
// default branding and round rules in place.
func NewDocument() *SessionDocument {
	questions := make(map[RoundID][]Question, len(Rounds()))
	for _, r := range Rounds() {
		questions[r] = []Question{}
	}

	return &SessionDocument{
		Teams:       []Team{},
		Questions:   questions,
		DisplayMode: ModeBanner,
		Timer: TimerState{
			Duration:  90,
			Remaining: 90,
		},
		Topics:     []string{},
		TopicPool:  []string{},
		TopicQueue: []string{},
		RoundRules: defaultRoundRules(),
		Settings: Settings{
			EventTitle:    "MITQuizmania",
			EventSubtitle: "Annual Quiz Competition",
			BannerImage:   "media/eventbanner.jpg",
			PrimaryColor:  "#1a237e",
			AccentColor:   "#00b0ff",
		},
	}
}

func defaultRoundRules() map[RoundID]string {
	return map[RoundID]string{
		RoundGeneral1: "<h3>Round Rules:</h3><ul><li>5 questions per team</li><li>Mixed subjects: Business, IT, General Knowledge</li><li>10 points per correct answer</li><li>No negative marking</li></ul>",
		RoundBuzzer1:  "<h3>Round Rules:</h3><ul><li>20 questions total</li><li>First to buzz gets to answer</li><li>10 points for correct answer</li><li>-5 points for incorrect answer</li><li>Various subjects covered</li></ul>",
		RoundRapid:    "<h3>Round Rules:</h3><ul><li>90 seconds time limit</li><li>10 questions to answer</li><li>5 points per correct answer</li><li>No penalty for wrong answers</li><li>Team can pass on questions</li></ul>",
		RoundJeopardy: "<h3>Round Rules:</h3><ul><li>Choose questions by point value (5, 10, 25, 50)</li><li>Higher points = harder questions</li><li>May include audio/visual questions</li><li>Correct answer adds points</li><li>Wrong answer deducts points</li></ul>",
	}
}

// Normalize repairs a document read from storage or import so that readers
// never have to nil-check collections: missing banks, topic lists and rules
// default to empty, and team entries without an id or a name are dropped.
func (d *SessionDocument) Normalize() {
	if d.Questions == nil {
		d.Questions = make(map[RoundID][]Question, len(Rounds()))
	}
	for _, r := range Rounds() {
		if d.Questions[r] == nil {
			d.Questions[r] = []Question{}
		}
	}

	teams := make([]Team, 0, len(d.Teams))
	for _, t := range d.Teams {
		if t.ID == 0 || t.Name == "" {
			continue
		}
		teams = append(teams, t)
	}
	d.Teams = teams

	if d.Topics == nil {
		d.Topics = []string{}
	}
	if d.TopicPool == nil {
		d.TopicPool = []string{}
	}
	if d.TopicQueue == nil {
		d.TopicQueue = []string{}
	}
	if d.RapidFire.Questions == nil {
		d.RapidFire.Questions = []Question{}
	}
	if d.RoundRules == nil {
		d.RoundRules = map[RoundID]string{}
	}
	if !d.DisplayMode.Valid() {
		d.DisplayMode = ModeBanner
	}
}

// Clone returns a deep copy. Store reads hand out clones so callers can never
// alias the store-owned document.
func (d *SessionDocument) Clone() *SessionDocument {
	out := *d

	out.Teams = slices.Clone(d.Teams)

	out.Questions = make(map[RoundID][]Question, len(d.Questions))
	for r, qs := range d.Questions {
		cp := make([]Question, len(qs))
		for i, q := range qs {
			cp[i] = q
			cp[i].Row = copyIntPtr(q.Row)
			cp[i].Column = copyIntPtr(q.Column)
		}
		out.Questions[r] = cp
	}

	if d.CurrentQuestion != nil {
		cq := *d.CurrentQuestion
		cq.Row = copyIntPtr(d.CurrentQuestion.Row)
		cq.Column = copyIntPtr(d.CurrentQuestion.Column)
		out.CurrentQuestion = &cq
	}

	out.Topics = slices.Clone(d.Topics)
	out.TopicPool = slices.Clone(d.TopicPool)
	out.TopicQueue = slices.Clone(d.TopicQueue)

	out.RapidFire.Questions = make([]Question, len(d.RapidFire.Questions))
	for i, q := range d.RapidFire.Questions {
		out.RapidFire.Questions[i] = q
		out.RapidFire.Questions[i].Row = copyIntPtr(q.Row)
		out.RapidFire.Questions[i].Column = copyIntPtr(q.Column)
	}

	out.RoundRules = make(map[RoundID]string, len(d.RoundRules))
	for r, v := range d.RoundRules {
		out.RoundRules[r] = v
	}

	return &out
}

// FindTeam returns a pointer into the document's team list, or nil.
func (d *SessionDocument) FindTeam(id int) *Team {
	for i := range d.Teams {
		if d.Teams[i].ID == id {
			return &d.Teams[i]
		}
	}
	return nil
}

// FindQuestion returns a pointer into the named round's bank, or nil.
func (d *SessionDocument) FindQuestion(round RoundID, id int) *Question {
	qs := d.Questions[round]
	for i := range qs {
		if qs[i].ID == id {
			return &qs[i]
		}
	}
	return nil
}

// NextTeamID returns max(id)+1 over the current teams, starting at 1.
func (d *SessionDocument) NextTeamID() int {
	next := 1
	for _, t := range d.Teams {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	return next
}

// NextQuestionID returns max(id)+1 within one round's bank, starting at 1.
func (d *SessionDocument) NextQuestionID(round RoundID) int {
	next := 1
	for _, q := range d.Questions[round] {
		if q.ID >= next {
			next = q.ID + 1
		}
	}
	return next
}

// SortedTeams returns the non-eliminated teams ordered by score descending.
// Eliminated teams are excluded even when they hold the highest score.
func (d *SessionDocument) SortedTeams() []Team {
	out := make([]Team, 0, len(d.Teams))
	for _, t := range d.Teams {
		if !t.Eliminated {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// AllTeams returns every team, eliminated included, ordered by score descending.
func (d *SessionDocument) AllTeams() []Team {
	out := slices.Clone(d.Teams)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// UnusedQuestions returns the not-yet-used entries of one round's bank.
func (d *SessionDocument) UnusedQuestions(round RoundID) []Question {
	var out []Question
	for _, q := range d.Questions[round] {
		if !q.Used {
			out = append(out, q)
		}
	}
	return out
}

// TopicQuestions returns the topic-round bank entries tagged with the given
// topic, matched case-insensitively.
func (d *SessionDocument) TopicQuestions(topic string) []Question {
	var out []Question
	for _, q := range d.Questions[RoundTopic] {
		if strings.EqualFold(strings.TrimSpace(q.Topic), strings.TrimSpace(topic)) {
			out = append(out, q)
		}
	}
	return out
}

// DistinctTopics returns the unique, trimmed topics present in the topic-round
// bank, in first-seen order.
func (d *SessionDocument) DistinctTopics() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, q := range d.Questions[RoundTopic] {
		t := strings.TrimSpace(q.Topic)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
