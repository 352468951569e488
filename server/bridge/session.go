package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/logger"
	"github.com/AltairaLabs/stepflow/runtime/validators"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// ErrUnknownCommand is reported on result frames for unrecognized commands.
var ErrUnknownCommand = errors.New("unknown command")

// ErrMissingIndex is reported when navigate or focusStep omits the index.
var ErrMissingIndex = errors.New("command requires an index")

// session is one WebSocket connection driving one navigator. Commands are
// processed on the reading goroutine; writes are serialized by writeMu.
type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // gorilla/websocket allows one concurrent writer
	limiter *rate.Limiter
	data    *validators.DataStore
	nav     *workflow.Navigator

	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, r rate.Limit, burst int) *session {
	conn.SetReadLimit(defaultMaxMessageSize)
	return &session{
		conn:    conn,
		limiter: rate.NewLimiter(r, burst),
		data:    validators.NewDataStore(),
	}
}

// serve sends the initial state and processes commands until the client
// disconnects.
func (s *session) serve(ctx context.Context) {
	defer s.close(websocket.CloseNormalClosure, "")

	if err := s.send(&Frame{Type: FrameState, State: stateView(s.nav)}); err != nil {
		return
	}

	for {
		var cmd Command
		if err := s.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.DebugContext(ctx, "bridge read ended", "error", err)
			}
			return
		}

		result := s.dispatch(ctx, &cmd)
		if err := s.send(result); err != nil {
			return
		}
		if err := s.send(&Frame{Type: FrameState, State: stateView(s.nav)}); err != nil {
			return
		}
	}
}

// dispatch runs one command and returns its result frame.
func (s *session) dispatch(ctx context.Context, cmd *Command) *Frame {
	result := &Frame{Type: FrameResult, ID: cmd.ID, Command: cmd.Command}
	if !s.limiter.Allow() {
		result.Outcome = workflow.OutcomeBusy.String()
		result.Error = ErrRateLimited.Error()
		return result
	}

	var (
		outcome workflow.Outcome
		err     error
	)
	switch cmd.Command {
	case CmdAdvance:
		outcome, err = s.nav.Advance(ctx)
	case CmdRetreat:
		outcome, err = s.nav.Retreat(ctx)
	case CmdSkip:
		outcome, err = s.nav.Skip(ctx)
	case CmdActivate:
		outcome, err = s.nav.Activate(ctx)
	case CmdNavigate:
		if cmd.Index == nil {
			result.Error = ErrMissingIndex.Error()
			return result
		}
		outcome, err = s.nav.RequestNavigation(ctx, *cmd.Index)
	case CmdReset:
		start := 0
		if cmd.Index != nil {
			start = *cmd.Index
		}
		outcome, err = s.nav.Reset(ctx, start)
	case CmdContentCompleted:
		outcome, err = s.nav.ContentCompleted(ctx, s.stepID(cmd))
	case CmdData:
		s.handleData(ctx, cmd, result)
		return result
	case CmdFocusNext, CmdFocusPrevious, CmdFocusFirst, CmdFocusLast, CmdFocusStep:
		s.handleFocus(cmd, result)
		return result
	default:
		result.Error = ErrUnknownCommand.Error()
		return result
	}

	setOutcome(result, outcome, err)
	return result
}

func (s *session) handleFocus(cmd *Command, result *Frame) {
	var (
		index int
		moved bool
	)
	switch cmd.Command {
	case CmdFocusNext:
		index, moved = s.nav.FocusNext()
	case CmdFocusPrevious:
		index, moved = s.nav.FocusPrevious()
	case CmdFocusFirst:
		index, moved = s.nav.FocusFirst()
	case CmdFocusLast:
		index, moved = s.nav.FocusLast()
	case CmdFocusStep:
		if cmd.Index == nil {
			result.Error = ErrMissingIndex.Error()
			return
		}
		index, moved = s.nav.FocusStep(*cmd.Index)
	}

	result.Outcome = outcomeMoved
	if !moved {
		index = s.nav.FocusedIndex()
		result.Outcome = outcomeNoop
	}
	result.Index = intPtr(index)
}

// handleData merges values into the step's data. When the step's content
// becomes complete the navigator is told, so auto-advance can fire.
func (s *session) handleData(ctx context.Context, cmd *Command, result *Frame) {
	stepID := s.stepID(cmd)
	if err := s.data.Merge(stepID, cmd.Values); err != nil {
		result.Error = err.Error()
		return
	}

	idx, ok := s.nav.IndexOf(stepID)
	if !ok {
		result.Outcome = outcomeNoop
		return
	}
	step, _ := s.nav.Step(idx)
	if step.IsComplete == nil || !step.IsComplete() {
		result.Outcome = outcomeNoop
		return
	}
	outcome, err := s.nav.ContentCompleted(ctx, stepID)
	setOutcome(result, outcome, err)
}

// stepID returns the command's step, defaulting to the current step.
func (s *session) stepID(cmd *Command) string {
	if cmd.Step != "" {
		return cmd.Step
	}
	if step, ok := s.nav.CurrentStep(); ok {
		return step.ID
	}
	return ""
}

func setOutcome(f *Frame, outcome workflow.Outcome, err error) {
	f.Outcome = outcome.String()
	if err != nil {
		f.Error = err.Error()
	}
}

func (s *session) onEvent(e *events.Event) {
	_ = s.send(&Frame{Type: FrameEvent, Event: e.Type, Data: e.Data})
}

func (s *session) announce(message string) {
	_ = s.send(&Frame{Type: FrameAnnounce, Message: message})
}

// FocusStep implements workflow.FocusPort.
func (s *session) FocusStep(index int) {
	_ = s.send(&Frame{Type: FrameFocus, Index: intPtr(index)})
}

// FocusContent implements workflow.FocusPort.
func (s *session) FocusContent(index int) {
	_ = s.send(&Frame{Type: FrameFocus, Index: intPtr(index), Content: true})
}

func (s *session) send(f *Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(defaultWriteWait))
	return s.conn.WriteJSON(f)
}

func (s *session) close(code int, text string) {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, text), time.Now().Add(defaultWriteWait))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
}
