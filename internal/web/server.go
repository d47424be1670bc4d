// Package web serves the single-page ETR image generator UI.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/abdulachik/etrimage/internal/feedback"
	"github.com/abdulachik/etrimage/internal/health"
	"github.com/abdulachik/etrimage/internal/metrics"
	"github.com/abdulachik/etrimage/internal/pipeline"
	"github.com/abdulachik/etrimage/internal/prompt"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

//go:embed templates/*.html
var templatesFS embed.FS

const shutdownTimeout = 10 * time.Second

// Config holds the server dependencies and UI defaults.
type Config struct {
	Pipeline *pipeline.Pipeline
	Metrics  *metrics.Metrics
	Health   *health.Health

	// Unavailable is shown as a banner when generation is disabled.
	Unavailable error

	// SystemPrompt pre-fills the instruction editor. Blank shows the
	// built-in template.
	SystemPrompt     string
	TextTemperature  float64
	ImageTemperature float64

	SessionTTL       time.Duration
	GenerateInterval time.Duration
	GenerateBurst    int
}

// Server is the HTTP front end.
type Server struct {
	pipeline    *pipeline.Pipeline
	metrics     *metrics.Metrics
	health      *health.Health
	unavailable error
	sessions    *sessionStore
	limiter     *rate.Limiter
	engine      *gin.Engine
}

type formValues struct {
	Text             string
	SystemPrompt     string
	Style            prompt.Style
	TextTemperature  float64
	ImageTemperature float64
}

type generateForm struct {
	Text             string   `form:"text"`
	SystemPrompt     string   `form:"system_prompt"`
	Style            string   `form:"style"`
	TextTemperature  *float64 `form:"text_temperature"`
	ImageTemperature *float64 `form:"image_temperature"`
}

type feedbackForm struct {
	Rating   string `form:"rating"`
	Comments string `form:"comments"`
}

type styleOption struct {
	Value    string
	Label    string
	Selected bool
}

type result struct {
	Artifacts  pipeline.Artifacts
	StyleLabel string
	ImageURL   string
	CanRate    bool
}

type pageData struct {
	Form       formValues
	Styles     []styleOption
	Banner     *message
	Message    *message
	Result     *result
	State      string
	Strategies []string
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	defaults := formValues{
		SystemPrompt:     cfg.SystemPrompt,
		Style:            prompt.StylePhotographic,
		TextTemperature:  cfg.TextTemperature,
		ImageTemperature: cfg.ImageTemperature,
	}
	if defaults.SystemPrompt == "" {
		defaults.SystemPrompt = prompt.DefaultSystemPrompt
	}

	limit := rate.Inf
	if cfg.GenerateInterval > 0 {
		limit = rate.Every(cfg.GenerateInterval)
	}
	burst := cfg.GenerateBurst
	if burst < 1 {
		burst = 1
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	s := &Server{
		pipeline:    cfg.Pipeline,
		metrics:     cfg.Metrics,
		health:      cfg.Health,
		unavailable: cfg.Unavailable,
		sessions:    newSessionStore(cfg.Pipeline, ttl, defaults),
		limiter:     rate.NewLimiter(limit, burst),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.SetHTMLTemplate(tmpl)

	engine.GET("/", s.handleIndex)
	engine.POST("/generate", s.handleGenerate)
	engine.GET("/image", s.handleImage)
	engine.POST("/feedback", s.handleFeedback)
	engine.POST("/reset", s.handleReset)
	engine.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.engine = engine
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(c *gin.Context) {
	v := s.sessions.visitor(c)
	s.render(c, http.StatusOK, v, nil)
}

func (s *Server) handleGenerate(c *gin.Context) {
	v := s.sessions.visitor(c)

	var form generateForm
	if err := c.ShouldBind(&form); err != nil {
		_ = c.Error(err)
		s.render(c, http.StatusBadRequest, v, msgInvalidForm)
		return
	}
	style, err := prompt.ParseStyle(form.Style)
	if err != nil {
		s.render(c, http.StatusBadRequest, v, msgInvalidForm)
		return
	}

	values := v.lastForm()
	values.Text = form.Text
	if strings.TrimSpace(form.SystemPrompt) != "" {
		values.SystemPrompt = form.SystemPrompt
	}
	values.Style = style
	if form.TextTemperature != nil {
		values.TextTemperature = *form.TextTemperature
	}
	if form.ImageTemperature != nil {
		values.ImageTemperature = *form.ImageTemperature
	}
	v.remember(values)

	if !s.limiter.Allow() {
		s.render(c, http.StatusTooManyRequests, v, msgRateLimited)
		return
	}

	// A client that goes away must not abort calls that are already issued.
	partial, err := v.session.Submit(context.WithoutCancel(c.Request.Context()), pipeline.GenerationRequest{
		SourceText:       values.Text,
		SystemPrompt:     values.SystemPrompt,
		Style:            values.Style,
		TextTemperature:  values.TextTemperature,
		ImageTemperature: values.ImageTemperature,
	})
	if err != nil {
		msg, status := errorMessage(err, v.session.State())
		if partial.FinalPrompt != "" {
			s.renderArtifacts(c, status, v, msg, partial)
			return
		}
		s.render(c, status, v, msg)
		return
	}
	s.render(c, http.StatusOK, v, nil)
}

func (s *Server) handleImage(c *gin.Context) {
	v := s.sessions.visitor(c)
	a := v.session.Artifacts()
	if !a.HasImage() {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, a.Image.MIMEType, a.Image.Data)
}

func (s *Server) handleFeedback(c *gin.Context) {
	v := s.sessions.visitor(c)

	var form feedbackForm
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, v, msgInvalidRating)
		return
	}
	rating, err := feedback.ParseRating(form.Rating)
	if err != nil {
		s.render(c, http.StatusBadRequest, v, msgInvalidRating)
		return
	}

	rec, err := v.session.Commit(context.WithoutCancel(c.Request.Context()), rating, form.Comments)
	if err != nil {
		msg, status := errorMessage(err, v.session.State())
		s.render(c, status, v, msg)
		return
	}
	s.render(c, http.StatusOK, v, savedMessage(string(rec.Rating), rec.ImageFilename))
}

func (s *Server) handleReset(c *gin.Context) {
	v := s.sessions.visitor(c)
	v.session.Reset()
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":     "ok",
		"generation": s.unavailable == nil,
		"strategies": s.pipeline.Strategies(),
		"sessions":   s.sessions.count(),
	}
	if s.unavailable != nil {
		body["status"] = "unavailable"
		body["reason"] = s.unavailable.Error()
		status = http.StatusServiceUnavailable
	}
	if s.health != nil {
		body["components"] = s.health.All()
		if !s.health.Healthy() && s.unavailable == nil {
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// render draws the page for v with an optional message.
func (s *Server) render(c *gin.Context, status int, v *visitor, msg *message) {
	s.renderArtifacts(c, status, v, msg, v.session.Artifacts())
}

// renderArtifacts draws the page showing a instead of the session's result.
// Failed requests are shown this way since the session no longer holds them.
func (s *Server) renderArtifacts(c *gin.Context, status int, v *visitor, msg *message, a pipeline.Artifacts) {
	form := v.lastForm()
	state := v.session.State()

	data := pageData{
		Form:       form,
		Message:    msg,
		State:      state.String(),
		Strategies: s.pipeline.Strategies(),
	}
	for _, st := range prompt.Styles {
		data.Styles = append(data.Styles, styleOption{
			Value:    string(st),
			Label:    st.Label(),
			Selected: st == form.Style,
		})
	}
	if s.unavailable != nil {
		data.Banner, _ = errorMessage(&pipeline.Error{Kind: pipeline.ConfigMissing, Err: s.unavailable}, state)
	}

	if a.FinalPrompt != "" || a.HasImage() {
		r := &result{
			Artifacts:  a,
			StyleLabel: a.Request.Style.Label(),
			CanRate:    state == pipeline.AwaitingFeedback,
		}
		if a.HasImage() {
			r.ImageURL = fmt.Sprintf("/image?v=%d", time.Now().UnixNano())
		}
		data.Result = r
		if a.UsedFallback && msg == nil {
			data.Message = &message{
				Level: levelInfo,
				Text:  "Model nie podał promptu w oczekiwanym formacie. Użyto uproszczonego promptu.",
			}
		}
	}

	c.HTML(status, "index.html", data)
}
