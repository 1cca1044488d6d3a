package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quizmania/stage/internal/control"
	"github.com/quizmania/stage/internal/display"
	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/rapidfire"
	"github.com/quizmania/stage/internal/store"
	"github.com/quizmania/stage/internal/topic"
)

const maxImportSize = 8 << 20

type Config struct {
	Router    gin.IRouter
	Store     *store.Store
	Control   *control.Service
	Topics    *topic.Workflow
	RapidFire *rapidfire.Service
	Machine   *display.Machine
}

// API exposes the operator surface over HTTP JSON. The audience display
// polls the frame endpoint; everything else maps one route to one store or
// workflow operation.
type API struct {
	store     *store.Store
	control   *control.Service
	topics    *topic.Workflow
	rapidfire *rapidfire.Service
	machine   *display.Machine
}

func New(c Config) *API {
	a := &API{
		store:     c.Store,
		control:   c.Control,
		topics:    c.Topics,
		rapidfire: c.RapidFire,
		machine:   c.Machine,
	}
	a.register(c.Router)
	return a
}

func (a *API) register(r gin.IRouter) {
	v1 := r.Group("/api/v1")

	v1.GET("/session", a.getSession)
	v1.GET("/frame", a.getFrame)
	v1.GET("/export", a.exportSession)
	v1.POST("/import", a.importSession)

	v1.GET("/teams", a.listTeams)
	v1.POST("/teams", a.addTeam)
	v1.PATCH("/teams/:id", a.updateTeam)
	v1.DELETE("/teams/:id", a.deleteTeam)
	v1.POST("/teams/:id/score", a.updateTeamScore)
	v1.POST("/teams/:id/eliminate", a.setTeamEliminated)
	v1.POST("/teams/reset-scores", a.resetScores)

	v1.POST("/rounds/:round/questions", a.addQuestion)
	v1.PATCH("/rounds/:round/questions/:id", a.updateQuestion)
	v1.DELETE("/rounds/:round/questions/:id", a.deleteQuestion)
	v1.POST("/rounds/:round/questions/:id/used", a.markQuestionUsed)
	v1.POST("/rounds/:round/questions/reset-used", a.resetQuestionsUsed)
	v1.PUT("/rounds/:round/rule", a.setRoundRule)

	v1.POST("/control/start-event", a.startEvent)
	v1.POST("/control/show-question", a.showQuestion)
	v1.POST("/control/jeopardy", a.showJeopardyQuestion)
	v1.POST("/control/mark-correct", a.markCorrect)
	v1.POST("/control/mark-incorrect", a.markIncorrect)
	v1.POST("/control/show-answer", a.showAnswer)
	v1.POST("/control/stop-round", a.stopRound)
	v1.POST("/control/banner", a.showBanner)
	v1.POST("/control/scoreboard", a.showScoreboard)
	v1.POST("/control/timer", a.showTimer)
	v1.POST("/control/timer/stop", a.stopTimer)
	v1.POST("/display/mode", a.setDisplayMode)

	v1.PUT("/settings", a.updateSettings)

	v1.POST("/topics", a.addTopic)
	v1.DELETE("/topics/:name", a.removeTopic)
	v1.GET("/topics/availability", a.topicAvailability)
	v1.DELETE("/topics/pool", a.clearTopicPool)
	v1.POST("/topics/publish", a.publishTopics)
	v1.POST("/topics/select", a.selectTopic)
	v1.POST("/topics/queue", a.enqueueTopic)
	v1.POST("/topics/queue/next", a.dequeueTopic)
	v1.DELETE("/topics/queue", a.clearTopicQueue)
	v1.PUT("/topics/turn-by-turn", a.setTurnByTurn)

	v1.POST("/rapidfire/start", a.startRapidFire)
	v1.POST("/rapidfire/next", a.nextRapidFire)
	v1.POST("/rapidfire/prev", a.prevRapidFire)
	v1.POST("/rapidfire/pass", a.passRapidFire)
	v1.POST("/rapidfire/correct", a.correctRapidFire)
	v1.POST("/rapidfire/pause", a.pauseRapidFire)
	v1.POST("/rapidfire/resume", a.resumeRapidFire)
	v1.POST("/rapidfire/end", a.endRapidFire)
	v1.POST("/rapidfire/stop", a.stopRapidFire)
	v1.PUT("/rapidfire/settings", a.setRapidFireSettings)
	v1.PUT("/rapidfire/team", a.setRapidFireTeam)
}

func (a *API) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, a.store.Snapshot())
}

func (a *API) getFrame(c *gin.Context) {
	c.JSON(http.StatusOK, a.machine.Frame())
}

func (a *API) exportSession(c *gin.Context) {
	data, err := a.store.Export()
	if err != nil {
		abort(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="quiz-data.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (a *API) importSession(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		abort(c, apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithCause(err)))
		return
	}
	if err := a.store.Import(c.Request.Context(), data); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, a.store.Snapshot())
}

func (a *API) listTeams(c *gin.Context) {
	c.JSON(http.StatusOK, a.store.Snapshot().AllTeams())
}

func (a *API) addTeam(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		Members string `json:"members"`
		Color   string `json:"color"`
	}
	if !bind(c, &req) {
		return
	}

	team, err := a.store.AddTeam(c.Request.Context(), domain.Team{
		Name:    req.Name,
		Members: req.Members,
		Color:   req.Color,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (a *API) updateTeam(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name       *string `json:"name"`
		Members    *string `json:"members"`
		Score      *int    `json:"score"`
		Color      *string `json:"color"`
		Eliminated *bool   `json:"eliminated"`
	}
	if !bind(c, &req) {
		return
	}

	err := a.store.UpdateTeam(c.Request.Context(), id, store.TeamPatch{
		Name:       req.Name,
		Members:    req.Members,
		Score:      req.Score,
		Color:      req.Color,
		Eliminated: req.Eliminated,
	})
	done(c, err)
}

func (a *API) deleteTeam(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	done(c, a.store.DeleteTeam(c.Request.Context(), id))
}

func (a *API) updateTeamScore(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if !bind(c, &req) {
		return
	}

	score, err := a.store.UpdateTeamScore(c.Request.Context(), id, req.Delta)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score})
}

func (a *API) setTeamEliminated(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Eliminated bool `json:"eliminated"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.store.SetTeamEliminated(c.Request.Context(), id, req.Eliminated))
}

func (a *API) resetScores(c *gin.Context) {
	done(c, a.store.ResetScores(c.Request.Context()))
}

func (a *API) addQuestion(c *gin.Context) {
	round := domain.RoundID(c.Param("round"))

	var req domain.Question
	if !bind(c, &req) {
		return
	}

	q, err := a.store.AddQuestion(c.Request.Context(), round, req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (a *API) updateQuestion(c *gin.Context) {
	round := domain.RoundID(c.Param("round"))
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Text            *string              `json:"text"`
		Answer          *string              `json:"answer"`
		Points          *int                 `json:"points"`
		Used            *bool                `json:"used"`
		Type            *domain.QuestionType `json:"type"`
		Media           *string              `json:"media"`
		MediaType       *string              `json:"mediaType"`
		MediaName       *string              `json:"mediaName"`
		Topic           *string              `json:"topic"`
		Row             *int                 `json:"row"`
		Column          *int                 `json:"column"`
		DisplayAtStart  *bool                `json:"displayAtStart"`
		ShowTeamChoices *bool                `json:"showTeamChoices"`
	}
	if !bind(c, &req) {
		return
	}

	err := a.store.UpdateQuestion(c.Request.Context(), round, id, store.QuestionPatch{
		Text:            req.Text,
		Answer:          req.Answer,
		Points:          req.Points,
		Used:            req.Used,
		Type:            req.Type,
		Media:           req.Media,
		MediaType:       req.MediaType,
		MediaName:       req.MediaName,
		Topic:           req.Topic,
		Row:             req.Row,
		Column:          req.Column,
		DisplayAtStart:  req.DisplayAtStart,
		ShowTeamChoices: req.ShowTeamChoices,
	})
	done(c, err)
}

func (a *API) deleteQuestion(c *gin.Context) {
	round := domain.RoundID(c.Param("round"))
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	done(c, a.store.DeleteQuestion(c.Request.Context(), round, id))
}

func (a *API) markQuestionUsed(c *gin.Context) {
	round := domain.RoundID(c.Param("round"))
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	done(c, a.store.MarkQuestionUsed(c.Request.Context(), round, id))
}

func (a *API) resetQuestionsUsed(c *gin.Context) {
	done(c, a.store.ResetQuestionsUsed(c.Request.Context(), domain.RoundID(c.Param("round"))))
}

func (a *API) setRoundRule(c *gin.Context) {
	var req struct {
		Rule string `json:"rule"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.store.SetRoundRule(c.Request.Context(), domain.RoundID(c.Param("round")), req.Rule))
}

func (a *API) startEvent(c *gin.Context) {
	var req struct {
		Round domain.RoundID `json:"round"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.control.StartEvent(c.Request.Context(), req.Round))
}

func (a *API) showQuestion(c *gin.Context) {
	var req struct {
		Round domain.RoundID `json:"round"`
		ID    int            `json:"id"`
	}
	if !bind(c, &req) {
		return
	}

	cq, err := a.control.ShowQuestion(c.Request.Context(), req.Round, req.ID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, cq)
}

func (a *API) showJeopardyQuestion(c *gin.Context) {
	var req struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	}
	if !bind(c, &req) {
		return
	}

	cq, err := a.control.ShowJeopardyQuestion(c.Request.Context(), req.Row, req.Column)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, cq)
}

func (a *API) markCorrect(c *gin.Context) {
	var req struct {
		TeamID int `json:"teamId"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.control.MarkCorrect(c.Request.Context(), req.TeamID))
}

func (a *API) markIncorrect(c *gin.Context) {
	var req struct {
		TeamID int `json:"teamId"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.control.MarkIncorrect(c.Request.Context(), req.TeamID))
}

func (a *API) showAnswer(c *gin.Context) {
	done(c, a.control.ShowAnswer(c.Request.Context()))
}

func (a *API) stopRound(c *gin.Context) {
	done(c, a.control.StopRound(c.Request.Context()))
}

func (a *API) showBanner(c *gin.Context) {
	var req struct {
		Fullscreen bool `json:"fullscreen"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.control.ShowBanner(c.Request.Context(), req.Fullscreen))
}

func (a *API) showScoreboard(c *gin.Context) {
	done(c, a.control.ShowScoreboard(c.Request.Context()))
}

func (a *API) showTimer(c *gin.Context) {
	var req struct {
		Duration int `json:"duration"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.control.ShowTimer(c.Request.Context(), req.Duration))
}

func (a *API) stopTimer(c *gin.Context) {
	done(c, a.store.StopTimer(c.Request.Context()))
}

func (a *API) setDisplayMode(c *gin.Context) {
	var req struct {
		Mode domain.DisplayMode `json:"mode"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.store.SetDisplayMode(c.Request.Context(), req.Mode))
}

func (a *API) updateSettings(c *gin.Context) {
	var req struct {
		EventTitle      *string `json:"eventTitle"`
		EventSubtitle   *string `json:"eventSubtitle"`
		BannerImage     *string `json:"bannerImage"`
		PrimaryColor    *string `json:"primaryColor"`
		AccentColor     *string `json:"accentColor"`
		AutoSaveEnabled *bool   `json:"autoSaveEnabled"`
	}
	if !bind(c, &req) {
		return
	}

	err := a.store.UpdateSettings(c.Request.Context(), store.SettingsPatch{
		EventTitle:      req.EventTitle,
		EventSubtitle:   req.EventSubtitle,
		BannerImage:     req.BannerImage,
		PrimaryColor:    req.PrimaryColor,
		AccentColor:     req.AccentColor,
		AutoSaveEnabled: req.AutoSaveEnabled,
	})
	done(c, err)
}

func (a *API) addTopic(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.store.AddTopic(c.Request.Context(), req.Name))
}

func (a *API) removeTopic(c *gin.Context) {
	done(c, a.store.RemoveTopic(c.Request.Context(), c.Param("name")))
}

func (a *API) topicAvailability(c *gin.Context) {
	c.JSON(http.StatusOK, a.topics.Availability())
}

func (a *API) clearTopicPool(c *gin.Context) {
	done(c, a.store.ClearTopicPool(c.Request.Context()))
}

func (a *API) publishTopics(c *gin.Context) {
	done(c, a.topics.PublishTopics(c.Request.Context()))
}

func (a *API) selectTopic(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
	}
	if !bind(c, &req) {
		return
	}

	q, err := a.topics.Select(c.Request.Context(), req.Topic)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (a *API) enqueueTopic(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.topics.Enqueue(c.Request.Context(), req.Topic))
}

func (a *API) dequeueTopic(c *gin.Context) {
	q, err := a.topics.DequeueNext(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (a *API) clearTopicQueue(c *gin.Context) {
	done(c, a.store.ClearTopicQueue(c.Request.Context()))
}

func (a *API) setTurnByTurn(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.store.SetTopicTurnByTurn(c.Request.Context(), req.Enabled))
}

func (a *API) startRapidFire(c *gin.Context) {
	var req struct {
		QuestionCount int `json:"questionCount"`
		TotalTime     int `json:"totalTime"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.rapidfire.Start(c.Request.Context(), req.QuestionCount, req.TotalTime))
}

func (a *API) nextRapidFire(c *gin.Context) {
	done(c, a.rapidfire.Next(c.Request.Context()))
}

func (a *API) prevRapidFire(c *gin.Context) {
	done(c, a.rapidfire.Prev(c.Request.Context()))
}

func (a *API) passRapidFire(c *gin.Context) {
	done(c, a.rapidfire.Pass(c.Request.Context()))
}

func (a *API) correctRapidFire(c *gin.Context) {
	var req struct {
		TeamID int `json:"teamId"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.rapidfire.Correct(c.Request.Context(), req.TeamID))
}

func (a *API) pauseRapidFire(c *gin.Context) {
	done(c, a.rapidfire.Pause(c.Request.Context()))
}

func (a *API) resumeRapidFire(c *gin.Context) {
	done(c, a.rapidfire.Resume(c.Request.Context()))
}

func (a *API) endRapidFire(c *gin.Context) {
	done(c, a.rapidfire.End(c.Request.Context()))
}

func (a *API) stopRapidFire(c *gin.Context) {
	done(c, a.rapidfire.Stop(c.Request.Context()))
}

func (a *API) setRapidFireSettings(c *gin.Context) {
	var req domain.RapidFireSettings
	if !bind(c, &req) {
		return
	}
	done(c, a.store.SetRapidFireSettings(c.Request.Context(), req))
}

func (a *API) setRapidFireTeam(c *gin.Context) {
	var req struct {
		TeamID int `json:"teamId"`
	}
	if !bind(c, &req) {
		return
	}
	done(c, a.store.SetRapidFireTeam(c.Request.Context(), req.TeamID))
}

// bind decodes the JSON body. An empty body binds to the zero value so
// body-less operator actions (stop, pause, reset) stay one-line curls.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		abort(c, apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("invalid request body"),
			apperrors.WithCause(err),
		))
		return false
	}
	return true
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		abort(c, apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("invalid %s %q", name, c.Param(name)),
		))
		return 0, false
	}
	return v, true
}

func done(c *gin.Context, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func abort(c *gin.Context, err error) {
	e := apperrors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e})
}
