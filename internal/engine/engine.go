// Package engine implements the conversation engine: the state machine that
// drives a single PAM authentication dialogue, interleaving UI requests
// read from stdin with daemon responses read from the greetd socket.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tiss-greeter/greetd-backend/internal/classify"
	"github.com/tiss-greeter/greetd-backend/internal/greetd"
	"github.com/tiss-greeter/greetd-backend/internal/phase"
	"github.com/tiss-greeter/greetd-backend/internal/powergate"
	"github.com/tiss-greeter/greetd-backend/internal/statestore"
	"github.com/tiss-greeter/greetd-backend/internal/uiproto"
	"github.com/tiss-greeter/greetd-backend/log"
	"github.com/ubuntu/decorate"
)

// daemonClient is the subset of *greetd.Client the engine depends on, so
// tests can substitute a scripted fake.
type daemonClient interface {
	Send(greetd.Request) error
	Recv() (greetd.Response, error)
	Close() error
}

var errPromptTimeout = errors.New("prompt response timed out")

// Engine drives the conversation described in the component design: one UI
// connection over stdio, one daemon connection per authentication attempt.
type Engine struct {
	cfg   Config
	dial  func(addr string) (daemonClient, error)
	poll  func(timeout time.Duration) (bool, error)

	reader *uiproto.Reader
	writer *uiproto.Writer
	phase  *phase.Tracker
	store  *statestore.Store
	power  *powergate.Gate

	nextPromptID int64
}

// New assembles an Engine from its collaborators. poll may be nil, in which
// case the per-prompt timeout is never enforced (as in the tests).
func New(cfg Config, reader *uiproto.Reader, writer *uiproto.Writer, store *statestore.Store, power *powergate.Gate, poll func(timeout time.Duration) (bool, error)) *Engine {
	return &Engine{
		cfg:    cfg,
		dial:   dialDaemon,
		poll:   poll,
		reader: reader,
		writer: writer,
		phase:  phase.NewTracker(writer),
		store:  store,
		power:  power,
	}
}

func dialDaemon(addr string) (daemonClient, error) {
	return greetd.Dial(addr)
}

// Run executes the outer request loop until the UI disconnects cleanly or a
// successful conversation completes and is acknowledged. It returns nil on
// either clean shutdown, and a non-nil error only for unrecoverable I/O
// failures on the UI stream itself.
func (e *Engine) Run() (err error) {
	defer decorate.OnError(&err, "conversation engine")

	if err := e.phase.Set(phase.Idle); err != nil {
		return err
	}

	for {
		req, err := e.reader.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var parseErr *uiproto.ParseError
			if errors.As(err, &parseErr) {
				if werr := e.writer.WriteResponse(uiproto.Error("pam_error", parseErr.Error())); werr != nil {
					return werr
				}
				continue
			}
			return err
		}

		exit, err := e.handleRequest(req)
		if err != nil {
			return err
		}
		if exit {
			return nil
		}
	}
}

func (e *Engine) handleRequest(req uiproto.Request) (exit bool, err error) {
	switch req.Type {
	case uiproto.RequestHello:
		return false, e.phase.Set(e.phase.Get())

	case uiproto.RequestAuth:
		return e.runAuth(req)

	case uiproto.RequestPower:
		return false, e.handlePower(req)

	case uiproto.RequestAck:
		// Pure bookkeeping no-op: the UI may acknowledge a rendered error
		// before issuing its next request.
		return false, nil

	default:
		return false, e.writer.WriteResponse(uiproto.Error("pam_error", "unexpected request"))
	}
}

func (e *Engine) handlePower(req uiproto.Request) error {
	ok, code, reason := e.power.Dispatch(e.phase.Get(), req.Action)
	if ok {
		return nil
	}
	return e.writer.WriteResponse(uiproto.Error(string(code), reason))
}

// terminal describes a non-success outcome of a conversation.
type terminal struct {
	code    string
	message string
	soft    bool
}

// runAuth implements §4.6's procedure in full: connect, create_session,
// dialogue loop, start_session, and terminal handling.
func (e *Engine) runAuth(req uiproto.Request) (exit bool, err error) {
	// A hard failure leaves the phase at error; a new auth request leaves it
	// again, so only a conversation still in flight is rejected.
	if p := e.phase.Get(); p != phase.Idle && p != phase.Error {
		return false, e.writer.WriteResponse(uiproto.Error("pam_error", "auth in progress"))
	}

	if err := e.phase.Set(phase.Auth); err != nil {
		return false, err
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return e.terminalFailure(terminal{code: "pam_error", message: "username is required", soft: false})
	}

	client, err := e.dial(e.cfg.GreetdSocket)
	if err != nil {
		return e.terminalFailure(terminal{code: "pam_error", message: fmt.Sprintf("connect to session daemon: %v", err), soft: false})
	}
	defer func() { _ = client.Close() }()

	term, fatal := e.dialogue(client, req)
	if fatal != nil {
		return false, fatal
	}
	if term != nil {
		return e.terminalFailure(*term)
	}

	return e.succeed(client, req)
}

// dialogue runs the create_session..success portion of the conversation: it
// returns (nil, nil) once the daemon reports success for create_session,
// (*terminal, nil) on a classified or protocol failure, or (nil, err) for a
// fatal I/O error that should abort the whole process.
func (e *Engine) dialogue(client daemonClient, req uiproto.Request) (*terminal, error) {
	if err := client.Send(greetd.CreateSession(strings.TrimSpace(req.Username))); err != nil {
		return &terminal{code: "pam_error", message: fmt.Sprintf("create_session: %v", err)}, nil
	}

	var detail string

	for {
		resp, err := client.Recv()
		if err != nil {
			return &terminal{code: "pam_error", message: fmt.Sprintf("daemon communication failed: %v", err)}, nil
		}

		switch {
		case resp.Type == greetd.ResponseSuccess:
			return nil, nil

		case resp.IsPrompt():
			id := e.nextPrompt()
			echo := resp.AuthMessageType == greetd.AuthMessageVisible
			if err := e.writer.WriteResponse(uiproto.Prompt(id, string(resp.AuthMessageType), resp.AuthMessage, echo)); err != nil {
				return nil, err
			}

			response, term, err := e.awaitPromptResponse(id)
			if err != nil {
				return nil, err
			}
			if term != nil {
				_ = client.Send(greetd.CancelSession())
				return term, nil
			}

			if response == nil {
				_ = client.Send(greetd.CancelSession())
				return &terminal{code: "pam_error", message: "prompt response missing"}, nil
			}
			if err := client.Send(greetd.PostAuthMessageResponse(response)); err != nil {
				return &terminal{code: "pam_error", message: fmt.Sprintf("post_auth_message_response: %v", err)}, nil
			}

		case resp.IsNotice():
			if strings.TrimSpace(resp.AuthMessage) != "" {
				detail = resp.AuthMessage
			}
			if err := e.writer.WriteResponse(uiproto.Message(string(resp.AuthMessageType), resp.AuthMessage)); err != nil {
				return nil, err
			}
			if err := client.Send(greetd.PostAuthMessageResponse(nil)); err != nil {
				return &terminal{code: "pam_error", message: fmt.Sprintf("post_auth_message_response: %v", err)}, nil
			}

		case resp.Type == greetd.ResponseError:
			_ = client.Send(greetd.CancelSession())
			if resp.ErrorType == "auth_error" {
				code, msg := classify.Classify(resp.Description, detail)
				return &terminal{code: string(code), message: msg}, nil
			}
			msg := fmt.Sprintf("%s: %s", resp.ErrorType, resp.Description)
			if detail != "" {
				msg = fmt.Sprintf("%s (%s)", msg, detail)
			}
			return &terminal{code: "pam_error", message: msg}, nil

		default:
			return &terminal{code: "pam_error", message: "unexpected daemon response"}, nil
		}
	}
}

// awaitPromptResponse blocks for exactly one prompt_response matching id,
// tolerating interleaved hello/out-of-order traffic per §5's ordering
// guarantees. A non-nil terminal is soft for cancellation or timeout and
// hard for a UI disconnect.
func (e *Engine) awaitPromptResponse(id int64) (response *string, term *terminal, err error) {
	for {
		req, err := e.readWithTimeout()
		if err != nil {
			if errors.Is(err, errPromptTimeout) {
				return nil, &terminal{code: "pam_error", message: "authentication timed out", soft: true}, nil
			}
			if errors.Is(err, io.EOF) {
				return nil, &terminal{code: "pam_error", message: "ui disconnected during auth"}, nil
			}
			var parseErr *uiproto.ParseError
			if errors.As(err, &parseErr) {
				if werr := e.writer.WriteResponse(uiproto.Error("pam_error", parseErr.Error())); werr != nil {
					return nil, nil, werr
				}
				continue
			}
			return nil, nil, err
		}

		switch req.Type {
		case uiproto.RequestPromptResponse:
			if req.ID != id {
				if werr := e.writer.WriteResponse(uiproto.Error("pam_error", fmt.Sprintf("unexpected prompt id: %d", req.ID))); werr != nil {
					return nil, nil, werr
				}
				continue
			}
			return req.Response, nil, nil

		case uiproto.RequestCancel:
			return nil, &terminal{code: "pam_error", message: "authentication cancelled", soft: true}, nil

		case uiproto.RequestHello:
			continue

		case uiproto.RequestPower:
			if werr := e.handlePower(req); werr != nil {
				return nil, nil, werr
			}

		default:
			if werr := e.writer.WriteResponse(uiproto.Error("pam_error", "auth in progress")); werr != nil {
				return nil, nil, werr
			}
		}
	}
}

// readWithTimeout polls stdin readability (when a per-prompt timeout is
// configured and a poller is available) before delegating to the blocking
// line read.
func (e *Engine) readWithTimeout() (uiproto.Request, error) {
	if e.cfg.PromptTimeout > 0 && e.poll != nil {
		ready, err := e.poll(e.cfg.PromptTimeout)
		if err != nil {
			return uiproto.Request{}, fmt.Errorf("poll stdin: %w", err)
		}
		if !ready {
			return uiproto.Request{}, errPromptTimeout
		}
	}
	return e.reader.ReadRequest()
}

// succeed runs the start_session exchange and, on success, persists state,
// announces success to the UI, and waits for the acknowledging ack.
func (e *Engine) succeed(client daemonClient, req uiproto.Request) (exit bool, err error) {
	if err := e.phase.Set(phase.Waiting); err != nil {
		return false, err
	}

	cmd := e.cfg.resolveCommand(req)
	env := e.cfg.resolveEnv(req)

	if err := client.Send(greetd.StartSession(cmd, env)); err != nil {
		return e.terminalFailure(terminal{code: "pam_error", message: fmt.Sprintf("start_session: %v", err)})
	}

	resp, err := client.Recv()
	if err != nil {
		return e.terminalFailure(terminal{code: "pam_error", message: fmt.Sprintf("start_session response: %v", err)})
	}

	switch resp.Type {
	case greetd.ResponseSuccess:
		// fall through to persistence and ack-wait below
	case greetd.ResponseError:
		msg := fmt.Sprintf("%s: %s", resp.ErrorType, resp.Description)
		return e.terminalFailure(terminal{code: "pam_error", message: msg})
	default:
		return e.terminalFailure(terminal{code: "pam_error", message: "unexpected daemon response during start_session"})
	}

	if err := e.store.Merge(statestore.State{
		LastSessionID: req.SessionID,
		LastProfileID: req.ProfileID,
		LastLocale:    req.Locale,
	}); err != nil {
		log.Warningf(context.Background(), "failed to persist state: %v", err)
	}

	if err := e.phase.Set(phase.Success); err != nil {
		return false, err
	}
	if err := e.writer.WriteResponse(uiproto.Success()); err != nil {
		return false, err
	}

	return true, e.waitForSuccessAck()
}

// waitForSuccessAck blocks until the UI sends ack{kind="success"}, ignoring
// any other request in the interim. EOF counts as a received ack, since the
// process is about to exit either way.
func (e *Engine) waitForSuccessAck() error {
	for {
		req, err := e.reader.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var parseErr *uiproto.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil
		}
		if req.Type == uiproto.RequestAck && req.Kind == "success" {
			return nil
		}
	}
}

// terminalFailure emits the classified error, transitions phase according
// to soft/hard, and returns to the outer request loop.
func (e *Engine) terminalFailure(t terminal) (exit bool, err error) {
	if werr := e.writer.WriteResponse(uiproto.Error(t.code, t.message)); werr != nil {
		return false, werr
	}

	next := phase.Error
	if t.soft {
		next = phase.Idle
	}
	if err := e.phase.Set(next); err != nil {
		return false, err
	}
	return false, nil
}

func (e *Engine) nextPrompt() int64 {
	e.nextPromptID++
	return e.nextPromptID
}
