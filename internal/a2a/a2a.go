// Package a2a is the slice of the Agent-to-Agent protocol consolidate needs
// to collect contributions: agent cards and blocking message/send calls.
package a2a

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// TaskState is where a task is in its lifecycle.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateRejected      TaskState = "rejected"
)

var terminalStates = []TaskState{TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected}

// IsTerminal reports whether no further transitions follow s.
func (s TaskState) IsTerminal() bool {
	return slices.Contains(terminalStates, s)
}

// Role is the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Part is one piece of content. Only text parts are read back.
type Part struct {
	Text      string          `json:"text,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	MediaType string          `json:"mediaType,omitempty"`
}

func TextPart(text string) Part     { return Part{Text: text, MediaType: "text/plain"} }
func MarkdownPart(text string) Part { return Part{Text: text, MediaType: "text/markdown"} }

func joinText(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

type Message struct {
	MessageID string          `json:"messageId"`
	ContextID string          `json:"contextId,omitempty"`
	Role      Role            `json:"role"`
	Parts     []Part          `json:"parts"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

func (m Message) Text() string { return joinText(m.Parts) }

// SendMessageRequest is the params object of message/send.
type SendMessageRequest struct {
	Message       Message            `json:"message"`
	Configuration *SendMessageConfig `json:"configuration,omitempty"`
}

type SendMessageConfig struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	Blocking            bool     `json:"blocking"`
}

// Task is an agent's answer to a message.
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name"`
	Parts      []Part `json:"parts"`
}

// Text returns the artifact text, one blank line between artifacts. A task
// without artifact text falls back to its status message.
func (t *Task) Text() string {
	var out []string
	for _, a := range t.Artifacts {
		if s := joinText(a.Parts); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 && t.Status.Message != nil {
		return t.Status.Message.Text()
	}
	return strings.Join(out, "\n\n")
}

// AgentCard describes an agent and the skills it offers.
type AgentCard struct {
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	Version            string       `json:"version"`
	URL                string       `json:"url,omitempty"`
	DefaultInputModes  []string     `json:"defaultInputModes"`
	DefaultOutputModes []string     `json:"defaultOutputModes"`
	Skills             []AgentSkill `json:"skills"`
}

type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// HasSkill reports whether any skill has name as its ID or one of its tags.
func (c AgentCard) HasSkill(name string) bool {
	return slices.ContainsFunc(c.Skills, func(s AgentSkill) bool {
		return s.ID == name || slices.Contains(s.Tags, name)
	})
}
