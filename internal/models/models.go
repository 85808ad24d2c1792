package models

import (
	"encoding/json"
	"time"
)

/*** Persisted records ***/

// Session is one shared document plus the rights attached to it.
type Session struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Language          string    `json:"language"`
	CreatedAt         time.Time `json:"createdAt"`
	CreatedBy         string    `json:"createdBy"`
	Admins            []string  `json:"admins"`
	Solution          string    `json:"solution"`
	SolutionPresented bool      `json:"solutionPresented"`
	Linting           bool      `json:"linting"`
}

// CanManage reports whether userID is the creator or one of the admins.
func (s *Session) CanManage(userID string) bool {
	if userID == "" {
		return false
	}
	return userID == s.CreatedBy || s.IsAdmin(userID)
}

func (s *Session) IsAdmin(userID string) bool {
	for _, a := range s.Admins {
		if a == userID {
			return true
		}
	}
	return false
}

// ApplyTemplate copies the template's document fields and hides the solution again.
func (s *Session) ApplyTemplate(t *Template) {
	s.Code = t.Code
	s.Language = t.Language
	s.Solution = t.Solution
	s.SolutionPresented = false
}

type Template struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Code     string `json:"code"`
	Solution string `json:"solution"`
	Language string `json:"language"`
}

/*** Live state ***/

// Participant is the registry entry of one live connection.
// An empty SessionID means the connection is not attached to a session.
type Participant struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	Nickname     string `json:"nickname,omitempty"`
	SessionID    string `json:"sessionId"`
}

func (p Participant) MarshalJSON() ([]byte, error) {
	type alias Participant
	var sessionID *string
	if p.SessionID != "" {
		sessionID = &p.SessionID
	}
	return json.Marshal(struct {
		alias
		SessionID *string `json:"sessionId"`
	}{alias: alias(p), SessionID: sessionID})
}

type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type CursorPosition struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Cursor    Cursor `json:"cursor"`
}

type Selection struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

type CursorSelection struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Selection Selection `json:"selection"`
}

/*** Websocket frames ***/

// WSFrame is the envelope for every outbound websocket message.
type WSFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// InboundFrame keeps the payload raw until the event router knows its shape.
type InboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
