// Package mcp exposes learner progress and QA operations as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/palabras/internal/exam"
	"github.com/felixgeelhaar/palabras/internal/profile"
	"github.com/felixgeelhaar/palabras/internal/progress"
)

// Server wraps the MCP server with palabras functionality
type Server struct {
	mcpServer *server.Server
	tracker   *progress.Tracker
	catalog   progress.Catalog
	profiles  *profile.Service

	rndMu sync.Mutex // rand.Rand is not safe for concurrent tool calls
	rnd   *rand.Rand
}

// Config contains configuration for the MCP server
type Config struct {
	Tracker  *progress.Tracker
	Catalog  progress.Catalog
	Profiles *profile.Service

	// Rand seeds exam sampling. Nil means a time-seeded source.
	Rand *rand.Rand
}

// NewServer creates a new MCP server for palabras
func NewServer(cfg Config) *Server {
	rnd := cfg.Rand
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	s := &Server{
		tracker:  cfg.Tracker,
		catalog:  cfg.Catalog,
		profiles: cfg.Profiles,
		rnd:      rnd,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "palabras",
		Version: "0.1.0",
	}, server.WithInstructions(`
Palabras tracks a learner's Spanish vocabulary and grammar mastery.
Units unlock in order once the previous unit reaches 80%.

Available tools:
- progress_summary: Per-unit mastery, unlock state and exam availability
- record_score: Record a quiz or matching score for a group and level
- list_profiles: Profiles in the learner's document
- generate_exam: Draw a unit exam
- unlock_all / reset_progress / fill_progress / prepare_exam: QA operations on the active profile
`))

	s.registerTools()
	return s
}

// registerTools registers all palabras MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("progress_summary").
		Description("Summarize the active profile's mastery per unit and overall.").
		Handler(s.handleSummary)

	s.mcpServer.Tool("record_score").
		Description("Record a score for a vocabulary group at a level. Only improvements are kept.").
		Handler(s.handleRecordScore)

	s.mcpServer.Tool("list_profiles").
		Description("List profiles and show which one is active.").
		Handler(s.handleListProfiles)

	s.mcpServer.Tool("generate_exam").
		Description("Generate the cumulative exam for a unit.").
		Handler(s.handleGenerateExam)

	s.mcpServer.Tool("unlock_all").
		Description("QA: unlock every unit for the active profile.").
		Handler(s.handleUnlockAll)

	s.mcpServer.Tool("reset_progress").
		Description("QA: zero all scores and relock every unit but the first.").
		Handler(s.handleReset)

	s.mcpServer.Tool("fill_progress").
		Description("QA: set every score to 100.").
		Handler(s.handleFill)

	s.mcpServer.Tool("prepare_exam").
		Description("QA: set every score to 80 and unlock all units so every exam is available.").
		Handler(s.handlePrepareExam)
}

// Input/Output types for tools

type SummaryInput struct {
	UnitID string `json:"unit_id,omitempty" jsonschema:"description=Limit the summary to one unit"`
}

type SummaryOutput struct {
	Profile string                 `json:"profile"`
	Overall int                    `json:"overall"`
	Units   []progress.UnitSummary `json:"units"`
}

type RecordScoreInput struct {
	UnitID string  `json:"unit_id" jsonschema:"description=Unit id such as unidad_1"`
	Group  string  `json:"group" jsonschema:"description=Vocabulary group name"`
	Level  string  `json:"level" jsonschema:"description=Difficulty level,enum=easy,enum=medium,enum=hard"`
	Score  float64 `json:"score" jsonschema:"description=Percentage between 0 and 100"`
}

type ProfilesInput struct{}

type ProfileInfo struct {
	ID         string    `json:"id"`
	Nickname   string    `json:"nickname"`
	Active     bool      `json:"active"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type ProfilesOutput struct {
	Profiles []ProfileInfo `json:"profiles"`
}

type ExamInput struct {
	UnitID         string `json:"unit_id" jsonschema:"description=Unit id such as unidad_1"`
	IncludeAnswers bool   `json:"include_answers,omitempty" jsonschema:"description=Include expected answers for review"`
}

type ExamQuestion struct {
	Kind   exam.Kind `json:"kind"`
	Source string    `json:"source"`
	Prompt string    `json:"prompt"`
	Hint   string    `json:"hint,omitempty"`
	Answer string    `json:"answer,omitempty"`
}

type ExamOutput struct {
	UnitID    string         `json:"unit_id"`
	Total     int            `json:"total"`
	PassMark  int            `json:"pass_mark"`
	Questions []ExamQuestion `json:"questions"`
}

type SupportInput struct{}

type SupportOutput struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleSummary(ctx context.Context, input SummaryInput) (SummaryOutput, error) {
	p, err := s.profiles.Active()
	if err != nil {
		return SummaryOutput{}, fmt.Errorf("no active profile: %w", err)
	}
	units, overall, err := s.tracker.Summary()
	if err != nil {
		return SummaryOutput{}, err
	}

	if input.UnitID != "" {
		if _, err := s.catalog.Unit(input.UnitID); err != nil {
			return SummaryOutput{}, fmt.Errorf("%s: %w", input.UnitID, err)
		}
		filtered := units[:0]
		for _, u := range units {
			if u.UnitID == input.UnitID {
				filtered = append(filtered, u)
			}
		}
		units = filtered
	}

	return SummaryOutput{Profile: p.Nickname, Overall: overall, Units: units}, nil
}

func (s *Server) handleRecordScore(ctx context.Context, input RecordScoreInput) (progress.UpdateResult, error) {
	level, err := profile.ParseLevel(input.Level)
	if err != nil {
		return progress.UpdateResult{}, err
	}
	res, err := s.tracker.UpdateProgress(ctx, input.UnitID, input.Group, level, input.Score)
	if err != nil {
		return progress.UpdateResult{}, fmt.Errorf("record score: %w", err)
	}
	return *res, nil
}

func (s *Server) handleListProfiles(ctx context.Context, input ProfilesInput) (ProfilesOutput, error) {
	active := ""
	if p, err := s.profiles.Active(); err == nil {
		active = p.ID
	}

	list := s.profiles.List()
	out := ProfilesOutput{Profiles: make([]ProfileInfo, 0, len(list))}
	for _, p := range list {
		out.Profiles = append(out.Profiles, ProfileInfo{
			ID:         p.ID,
			Nickname:   p.Nickname,
			Active:     p.ID == active,
			LastSeenAt: p.LastSeenAt,
		})
	}
	return out, nil
}

func (s *Server) handleGenerateExam(ctx context.Context, input ExamInput) (ExamOutput, error) {
	unit, err := s.catalog.Unit(input.UnitID)
	if err != nil {
		return ExamOutput{}, fmt.Errorf("%s: %w", input.UnitID, err)
	}

	s.rndMu.Lock()
	questions, err := exam.Generate(unit, s.rnd)
	s.rndMu.Unlock()
	if err != nil {
		return ExamOutput{}, err
	}

	out := ExamOutput{
		UnitID:    unit.ID,
		Total:     len(questions),
		PassMark:  exam.PassThreshold,
		Questions: make([]ExamQuestion, len(questions)),
	}
	for i, q := range questions {
		out.Questions[i] = ExamQuestion{Kind: q.Kind, Source: q.Source, Prompt: q.Prompt, Hint: q.Hint}
		if input.IncludeAnswers {
			out.Questions[i].Answer = q.Answer
		}
	}
	return out, nil
}

func (s *Server) handleUnlockAll(ctx context.Context, input SupportInput) (SupportOutput, error) {
	return s.support("all units unlocked", s.tracker.UnlockAll(ctx))
}

func (s *Server) handleReset(ctx context.Context, input SupportInput) (SupportOutput, error) {
	return s.support("progress reset", s.tracker.ResetAll(ctx))
}

func (s *Server) handleFill(ctx context.Context, input SupportInput) (SupportOutput, error) {
	return s.support("all scores set to 100", s.tracker.FillAll(ctx))
}

func (s *Server) handlePrepareExam(ctx context.Context, input SupportInput) (SupportOutput, error) {
	return s.support("all scores set to 80 and units unlocked", s.tracker.PrepareExam(ctx))
}

func (s *Server) support(message string, err error) (SupportOutput, error) {
	if err != nil {
		return SupportOutput{}, err
	}
	return SupportOutput{OK: true, Message: message}, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
