package display

import (
	"fmt"
	"time"

	"github.com/quizmania/stage/internal/domain"
	"github.com/quizmania/stage/internal/timer"
)

// Frame is everything the audience surface needs to draw one screen. It is
// derived purely from the document and the clock, so rendering the same
// document twice yields the same frame.
type Frame struct {
	Mode             domain.DisplayMode `json:"mode"`
	FullscreenBanner bool               `json:"fullscreenBanner"`

	EventTitle    string `json:"eventTitle"`
	EventSubtitle string `json:"eventSubtitle"`
	BannerImage   string `json:"bannerImage,omitempty"`

	RoundName  string `json:"roundName,omitempty"`
	RoundRules string `json:"roundRules,omitempty"`

	Question *QuestionView `json:"question,omitempty"`
	Answer   string        `json:"answer,omitempty"`

	Scoreboard []domain.Team `json:"scoreboard,omitempty"`

	Topics     []string `json:"topics,omitempty"`
	TopicQueue []string `json:"topicQueue,omitempty"`

	TimerSeconds int `json:"timerSeconds,omitempty"`

	RapidFire *RapidFireView `json:"rapidFire,omitempty"`
}

type QuestionView struct {
	Text      string              `json:"text"`
	Points    int                 `json:"points"`
	Type      domain.QuestionType `json:"type"`
	Media     string              `json:"media,omitempty"`
	MediaType string              `json:"mediaType,omitempty"`
}

type RapidFireView struct {
	QuestionText     string `json:"questionText"`
	Counter          string `json:"counter"`
	RemainingSeconds int    `json:"remainingSeconds"`
	Paused           bool   `json:"paused"`
}

var roundNames = map[domain.RoundID]string{
	domain.RoundGeneral1: "Semi-Final General Round",
	domain.RoundBuzzer1:  "Semi-Final Buzzer Round",
	domain.RoundGeneral2: "Final General Round",
	domain.RoundTopic:    "Topic Selection Round",
	domain.RoundExtra:    "Extra Questions Round",
	domain.RoundRapid:    "Rapid Fire Round",
	domain.RoundJeopardy: "Jeopardy Round",
}

// RoundName returns the stage title for a round, falling back to the raw id.
func RoundName(round domain.RoundID) string {
	if name, ok := roundNames[round]; ok {
		return name
	}
	return string(round)
}

// Render derives the audience frame for the document's current mode. Unknown
// or missing pieces are skipped rather than failing the whole frame.
func Render(doc *domain.SessionDocument, now time.Time) Frame {
	f := Frame{
		Mode:          doc.DisplayMode,
		EventTitle:    doc.Settings.EventTitle,
		EventSubtitle: doc.Settings.EventSubtitle,
	}

	switch doc.DisplayMode {
	case domain.ModeBanner:
		f.BannerImage = doc.Settings.BannerImage
		f.FullscreenBanner = doc.BannerFullscreen

	case domain.ModeQuestion, domain.ModeAnswer:
		f.RoundName = RoundName(doc.CurrentRound)
		if cq := doc.CurrentQuestion; cq != nil {
			f.Question = &QuestionView{
				Text:      cq.Text,
				Points:    cq.Points,
				Type:      cq.Type,
				Media:     cq.Media,
				MediaType: cq.MediaType,
			}
			if doc.DisplayMode == domain.ModeAnswer {
				f.Answer = cq.Answer
			}
		}

	case domain.ModeScoreboard, domain.ModeCelebration:
		f.Scoreboard = doc.SortedTeams()

	case domain.ModeRound:
		f.RoundName = RoundName(doc.CurrentRound)
		f.RoundRules = doc.RoundRules[doc.CurrentRound]

	case domain.ModeTimer:
		f.TimerSeconds = seconds(timer.Remaining(QuestionTimerSnapshot(doc), now))

	case domain.ModeAllTopics:
		f.Topics = doc.TopicPool
		f.TopicQueue = doc.TopicQueue

	case domain.ModeRapidFire:
		rf := doc.RapidFire
		view := &RapidFireView{
			Counter:          fmt.Sprintf("Question %d / %d", rf.CurrentIndex+1, len(rf.Questions)),
			RemainingSeconds: seconds(timer.Remaining(RapidFireTimerSnapshot(doc), now)),
			Paused:           rf.Paused,
		}
		if rf.CurrentIndex >= 0 && rf.CurrentIndex < len(rf.Questions) {
			view.QuestionText = rf.Questions[rf.CurrentIndex].Text
		}
		f.RapidFire = view
	}

	return f
}

// QuestionTimerSnapshot adapts the document's question timer for the engine.
func QuestionTimerSnapshot(doc *domain.SessionDocument) timer.Snapshot {
	return timer.Snapshot{
		Active:    doc.Timer.Active,
		Duration:  time.Duration(doc.Timer.Duration) * time.Second,
		StartedAt: doc.Timer.StartTime,
	}
}

// RapidFireTimerSnapshot adapts the rapid-fire countdown for the engine.
func RapidFireTimerSnapshot(doc *domain.SessionDocument) timer.Snapshot {
	return timer.Snapshot{
		Active:    doc.RapidFire.Active,
		Paused:    doc.RapidFire.Paused,
		Duration:  time.Duration(doc.RapidFire.Duration) * time.Second,
		StartedAt: doc.RapidFire.StartTime,
		PausedAt:  doc.RapidFire.PauseTime,
	}
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
