package kbclient

import (
	"context"
	"errors"
)

// State tracks where a chat session is in its ask/answer cycle.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateAnswered         State = "answered"
)

// ApologyMessage is shown when no answer clears the relevance bar or when the
// knowledge base is unreachable.
const ApologyMessage = "Desculpe, não entendi sua pergunta. Pode reformular ou escolher uma das perguntas sugeridas?"

// ErrSessionBusy rejects an Ask while a previous question is still in flight.
var ErrSessionBusy = errors.New("kbclient: session not ready for a question")

// Reply is the outcome of one ask cycle.
type Reply struct {
	Text        string
	Answer      *Answer
	Suggestions []string
}

// Session drives a single user's conversation with the knowledge base. It is
// not safe for concurrent use; create one session per chat.
type Session struct {
	client *Client
	state  State
}

// NewSession starts an idle chat session.
func NewSession(client *Client) *Session {
	return &Session{client: client, state: StateIdle}
}

// State reports the current session state.
func (s *Session) State() State {
	return s.state
}

// Ask runs one question through the lookup. A miss answers with the apology
// plus suggestions instead of failing. A transport or server failure also
// yields the apology and puts the session straight back to idle, so the user
// can ask again after a transient outage; the error tells the caller what
// broke.
func (s *Session) Ask(ctx context.Context, mensagem string) (Reply, error) {
	if s.state == StateAwaitingResponse {
		return Reply{}, ErrSessionBusy
	}
	s.state = StateAwaitingResponse

	answer, err := s.client.BestAnswer(ctx, mensagem)
	if err != nil {
		s.state = StateIdle
		return Reply{Text: ApologyMessage, Suggestions: RankSuggestions(nil, 0)}, err
	}

	s.state = StateAnswered
	if answer == nil {
		return Reply{
			Text:        ApologyMessage,
			Suggestions: RankSuggestions(s.client.SearchAnswers(ctx, mensagem, -1, suggestionLimit), 0),
		}, nil
	}
	return Reply{Text: answer.Resposta, Answer: answer}, nil
}

// Reset returns the session to idle, discarding the last answer.
func (s *Session) Reset() {
	s.state = StateIdle
}
