package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/statement-trends/internal/chatlog"
	"github.com/rs/zerolog"
)

// QuestionTypeCodeGeneration is the question type recorded in the conversation log.
const QuestionTypeCodeGeneration = "code_generation"

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is empty")

// Request is one user question.
type Request struct {
	SessionID string `json:"session_id,omitempty"`
	Theme     string `json:"theme,omitempty"`
	Question  string `json:"question"`
}

// Answer is the validated result of a question. Generated code is never
// executed here; Valid tells callers whether it passed ValidateCode.
type Answer struct {
	SessionID       string  `json:"session_id"`
	Code            string  `json:"code"`
	Valid           bool    `json:"valid"`
	ValidationError string  `json:"validation_error,omitempty"`
	ModelName       string  `json:"model_name"`
	ProcessingTime  float64 `json:"processing_time"`
	TokensUsed      int     `json:"tokens_used"`
}

// Service turns questions into validated code and logs the conversation.
type Service struct {
	gen    CodeGenerator
	layout Layout
	logs   *chatlog.Store
	log    zerolog.Logger
	now    func() time.Time
}

// NewService creates an assistant service.
func NewService(gen CodeGenerator, layout Layout, logs *chatlog.Store, log zerolog.Logger) *Service {
	return &Service{gen: gen, layout: layout, logs: logs, log: log, now: time.Now}
}

// Ask generates code for req. A missing SessionID starts a new session.
// Generation failures are logged to the session and returned; validation
// failures are reported in the Answer.
func (s *Service) Ask(ctx context.Context, req Request) (*Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	sessionID := req.SessionID
	if sessionID == "" {
		id, err := s.logs.Create(req.Theme)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		sessionID = id
	}

	history, err := s.logs.History(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	files, err := ListAvailableFiles(s.layout)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	if err := s.logs.Append(sessionID, chatlog.Message{Role: chatlog.RoleUser, Content: question}); err != nil {
		return nil, err
	}

	start := s.now()
	prompt := BuildPrompt(question, s.layout, files, history)
	gen, genErr := s.gen.Generate(ctx, prompt)
	elapsed := s.now().Sub(start).Seconds()

	model := s.gen.ModelName()
	if genErr != nil {
		s.log.Error().Err(genErr).Str("session_id", sessionID).Msg("Code generation failed")
		_ = s.logs.Append(sessionID, chatlog.Message{
			Role:           chatlog.RoleAssistant,
			Content:        "コード生成に失敗しました: " + genErr.Error(),
			ModelName:      model,
			QuestionType:   QuestionTypeCodeGeneration,
			ProcessingTime: &elapsed,
			HasError:       true,
		})
		return nil, fmt.Errorf("generate code: %w", genErr)
	}

	ans := &Answer{
		SessionID:      sessionID,
		Code:           ExtractCode(gen.Text),
		ModelName:      model,
		ProcessingTime: elapsed,
		TokensUsed:     gen.TokensUsed,
		Valid:          true,
	}

	content := "コードを生成しました。"
	if err := ValidateCode(ans.Code); err != nil {
		ans.Valid = false
		ans.ValidationError = err.Error()
		content = "生成されたコードは安全性チェックに失敗しました: " + err.Error()
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Generated code rejected")
	}

	tokens := gen.TokensUsed
	if err := s.logs.Append(sessionID, chatlog.Message{
		Role:           chatlog.RoleAssistant,
		Content:        content,
		ModelName:      model,
		QuestionType:   QuestionTypeCodeGeneration,
		ProcessingTime: &elapsed,
		TokensUsed:     &tokens,
		HasError:       !ans.Valid,
		Code:           ans.Code,
	}); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sessionID).
		Str("model", model).
		Int("tokens", tokens).
		Float64("seconds", elapsed).
		Bool("valid", ans.Valid).
		Msg("Assistant answered")

	return ans, nil
}
