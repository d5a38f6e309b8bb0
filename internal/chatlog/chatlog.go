package chatlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DefaultRoot is where sessions are stored unless configured otherwise.
const DefaultRoot = "notebooks/chat_logs"

const (
	logFile      = "conversation.jsonl"
	markdownFile = "conversation.md"

	defaultTheme = "一般"
)

// Roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session id")
)

// Message is one line of conversation.jsonl.
type Message struct {
	Timestamp      time.Time         `json:"timestamp"`
	Role           string            `json:"role"`
	Content        string            `json:"content"`
	ModelName      string            `json:"model_name,omitempty"`
	QuestionType   string            `json:"question_type,omitempty"`
	ProcessingTime *float64          `json:"processing_time"`
	TokensUsed     *int              `json:"tokens_used"`
	HasError       bool              `json:"has_error"`
	Code           string            `json:"code,omitempty"`
	GraphPaths     map[string]string `json:"graph_paths,omitempty"`
}

// Turn is the role and content of a message, as fed back into prompts.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store keeps one directory per session under Root.
type Store struct {
	Root string

	now func() time.Time
	mu  sync.Mutex
}

// NewStore creates a store rooted at root, or DefaultRoot when empty.
func NewStore(root string) *Store {
	if root == "" {
		root = DefaultRoot
	}
	return &Store{Root: root, now: time.Now}
}

// NewSessionID builds "YYYYMMDD_HHMMSS_{theme}" keeping only letters,
// digits, "ー" and "_" from theme.
func NewSessionID(now time.Time, theme string) string {
	var b strings.Builder
	for _, r := range theme {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == 'ー' || r == '_' {
			b.WriteRune(r)
		}
	}
	return now.Format("20060102_150405") + "_" + b.String()
}

// Theme returns the theme part of a session id.
func Theme(sessionID string) string {
	parts := strings.SplitN(sessionID, "_", 3)
	if len(parts) < 2 {
		return defaultTheme
	}
	return parts[len(parts)-1]
}

// Dir returns the directory of a session.
func (s *Store) Dir(sessionID string) (string, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSession, sessionID)
	}
	return filepath.Join(s.Root, sessionID), nil
}

// Create starts a new session and returns its id.
func (s *Store) Create(theme string) (string, error) {
	if strings.TrimSpace(theme) == "" {
		theme = defaultTheme
	}
	id := NewSessionID(s.now(), theme)
	dir, err := s.Dir(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return id, nil
}

// Append adds msg to the session log, creating the session if needed.
func (s *Store) Append(sessionID string, msg Message) error {
	dir, err := s.Dir(sessionID)
	if err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, logFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Messages reads every message of a session. A session without a log
// returns ErrSessionNotFound.
func (s *Store) Messages(sessionID string) ([]Message, error) {
	dir, err := s.Dir(sessionID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, logFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	var out []Message
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var m Message
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return out, nil
}

// History returns the role and content of every message. An unknown
// session has an empty history.
func (s *Store) History(sessionID string) ([]Turn, error) {
	msgs, err := s.Messages(sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return []Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Turn{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// Markdown renders a session as a Markdown document.
func (s *Store) Markdown(sessionID, modelName string) ([]byte, error) {
	msgs, err := s.Messages(sessionID)
	if err != nil {
		return nil, err
	}

	started := s.now().Format("2006-01-02 15:04:05")
	if len(msgs) > 0 {
		started = msgs[0].Timestamp.Format("2006-01-02T15:04:05")
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", Theme(sessionID))
	fmt.Fprintf(&b, "**日時**: %s  \n", started)
	fmt.Fprintf(&b, "**モデル**: %s\n\n", modelName)
	b.WriteString("---\n\n")

	for _, m := range msgs {
		role := "アシスタント"
		if m.Role == RoleUser {
			role = "ユーザー"
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", role, m.Content)

		if m.Code != "" {
			b.WriteString("### 生成されたコード\n\n```python\n")
			b.WriteString(m.Code)
			b.WriteString("\n```\n\n")
		}
		if p, ok := m.GraphPaths["png_path"]; ok {
			fmt.Fprintf(&b, "![グラフ](%s)\n\n", filepath.Base(p))
		}
	}
	return b.Bytes(), nil
}

// ExportMarkdown writes conversation.md into the session directory and
// returns its path.
func (s *Store) ExportMarkdown(sessionID, modelName string) (string, error) {
	md, err := s.Markdown(sessionID, modelName)
	if err != nil {
		return "", err
	}
	dir, err := s.Dir(sessionID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, markdownFile)
	if err := os.WriteFile(path, md, 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return path, nil
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts the session's Markdown export to HTML.
func (s *Store) RenderHTML(sessionID, modelName string) ([]byte, error) {
	md, err := s.Markdown(sessionID, modelName)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := markdown.Convert(md, &out); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return out.Bytes(), nil
}
