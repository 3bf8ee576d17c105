// Package history provides local conversation history storage.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diogo/zai/internal/config"
	"github.com/diogo/zai/internal/models"
)

// ErrNotFound is returned when a conversation file does not exist.
var ErrNotFound = errors.New("conversation not found")

// ErrEmptyTitle is returned by UpdateTitle for a blank title.
var ErrEmptyTitle = errors.New("title cannot be empty")

const titleMaxLen = 50

// Message represents a single message in a conversation
type Message struct {
	Role      models.Role `json:"role"`
	Content   string      `json:"content"`
	Engine    string      `json:"engine,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Conversation represents a complete chat session
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Engine    string    `json:"engine"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Store manages conversation history persistence
type Store struct {
	baseDir string
	mu      sync.RWMutex
}

// NewStore creates a store under baseDir/history
func NewStore(baseDir string) (*Store, error) {
	historyDir := filepath.Join(baseDir, "history")
	if err := os.MkdirAll(historyDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &Store{
		baseDir: historyDir,
	}, nil
}

// Dir returns the directory conversation files are written to.
func (s *Store) Dir() string {
	return s.baseDir
}

// CreateConversation creates a new, empty conversation
func (s *Store) CreateConversation(engine string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateConvID()
	for {
		if _, err := os.Stat(s.conversationPath(id)); os.IsNotExist(err) {
			break
		}
		id = generateConvID()
	}

	now := time.Now()
	conv := &Conversation{
		ID:        id,
		Title:     fmt.Sprintf("Chat %s", now.Format("2006-01-02 15:04")),
		Engine:    engine,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}

	if err := s.saveConversation(conv); err != nil {
		return nil, err
	}

	return conv, nil
}

// GetConversation retrieves a conversation by ID
func (s *Store) GetConversation(id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadConversation(id)
}

// ListConversations returns all conversations, most recently updated first
func (s *Store) ListConversations() ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var conversations []*Conversation
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		conv, err := s.loadConversation(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // corrupted
		}
		conversations = append(conversations, conv)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	return conversations, nil
}

// AddMessage appends a message to a conversation. The first user message
// becomes the title.
func (s *Store) AddMessage(id string, role models.Role, content, engine string) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.loadConversation(id)
	if err != nil {
		return err
	}

	now := time.Now()
	conv.Messages = append(conv.Messages, Message{
		Role:      role,
		Content:   content,
		Engine:    engine,
		Timestamp: now,
	})
	conv.UpdatedAt = now
	if engine != "" {
		conv.Engine = engine
	}

	if role == models.RoleUser && len(conv.Messages) == 1 {
		conv.Title = titleFrom(content)
	}

	return s.saveConversation(conv)
}

func titleFrom(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if r := []rune(title); len(r) > titleMaxLen {
		title = string(r[:titleMaxLen]) + "..."
	}
	return title
}

// UpdateTitle renames a conversation. Whitespace is collapsed.
func (s *Store) UpdateTitle(id, title string) error {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.loadConversation(id)
	if err != nil {
		return err
	}

	conv.Title = title
	conv.UpdatedAt = time.Now()

	return s.saveConversation(conv)
}

// DeleteConversation removes a conversation
func (s *Store) DeleteConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.conversationPath(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	return nil
}

// ClearAll deletes all conversations and returns how many were removed
func (s *Store) ClearAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}

func (s *Store) conversationPath(id string) string {
	return filepath.Join(s.baseDir, filepath.Base(id)+".json")
}

func (s *Store) loadConversation(id string) (*Conversation, error) {
	data, err := os.ReadFile(s.conversationPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to parse conversation: %w", err)
	}

	return &conv, nil
}

func (s *Store) saveConversation(conv *Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	if err := os.WriteFile(s.conversationPath(conv.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}

	return nil
}

func generateConvID() string {
	return fmt.Sprintf("conv-%d", time.Now().UnixNano())
}

// DefaultStore creates a store in the config directory
func DefaultStore() (*Store, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStore(dir)
}
