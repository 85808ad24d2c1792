package models

// Websocket event names. Inbound and outbound frames share the same names.
const (
	EventJoin              = "join"
	EventJoinSession       = "join-session"
	EventLeaveSession      = "leave-session"
	EventTextInput         = "text-input"
	EventLanguageChange    = "language-change"
	EventSetAdmin          = "set-admin"
	EventRemoveAdmin       = "remove-admin"
	EventSetSolution       = "set-solution"
	EventSolutionPresented = "solution-presented"
	EventSetLinting        = "set-linting"
	EventSendCursor        = "send-cursor-position"
	EventSetSelection      = "set-selection"
	EventRemoveCursor      = "remove-cursor"
	EventSetNickname       = "set-nickname"
	EventError             = "error"

	// EventDisconnect is raised by the transport, never sent by clients.
	EventDisconnect = "disconnect"
)

// IdentifyRequest accepts the user id as either "userId" or the older "id".
type IdentifyRequest struct {
	UserID   string `json:"userId"`
	ID       string `json:"id,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

func (r IdentifyRequest) User() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.ID
}

type JoinSessionRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
}

type TextInputRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Language  *string `json:"language,omitempty"`
}

type TextInputBroadcast struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type LanguageChangeRequest struct {
	SessionID string `json:"sessionId"`
	Language  string `json:"language"`
}

type LanguageChange struct {
	Language string `json:"language"`
}

type AdminRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type SetSolutionRequest struct {
	SessionID  string `json:"sessionId"`
	TemplateID string `json:"templateId"`
}

type SolutionPresentedRequest struct {
	SessionID string `json:"sessionId"`
	Presented bool   `json:"presented"`
}

type LintingRequest struct {
	SessionID string `json:"sessionId"`
	Linting   bool   `json:"linting"`
}

type RemoveCursorRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

type NicknameRequest struct {
	Nickname string `json:"nickname"`
}

/*** REST payloads ***/

type CreateSessionRequest struct {
	ID       string `json:"id" validate:"required"`
	Nickname string `json:"nickname" validate:"required"`
}

type CreateTemplateRequest struct {
	Title    string `json:"title" validate:"required"`
	Code     string `json:"code"`
	Solution string `json:"solution"`
	Language string `json:"language" validate:"required"`
}

type UpdateTemplateRequest struct {
	ID       string `json:"id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Code     string `json:"code"`
	Solution string `json:"solution"`
	Language string `json:"language" validate:"required"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ResetResponse struct {
	Status  string `json:"status"`
	Deleted int64  `json:"deleted"`
}
