package control

import (
	"context"
	"fmt"
	"strings"

	"github.com/hypebeast/go-osc/osc"
)

// busAddressPrefix is the OSC address namespace under which bus writes are
// addressed: a message to "/bus/gain" with one numeric argument sets bus
// "gain" to that value (spec §6.5, "Implementations may expose this as OSC
// messages").
const busAddressPrefix = "/bus/"

// Server receives OSC bus-write messages and pushes them onto a Ring for
// the audio thread to drain.
type Server struct {
	addr string
	ring *Ring
}

// NewServer builds a Server listening on addr (e.g. "127.0.0.1:9000"),
// pushing every received bus write onto ring.
func NewServer(addr string, ring *Ring) *Server {
	return &Server{addr: addr, ring: ring}
}

// ListenAndServe blocks accepting OSC messages until ctx is cancelled or
// the underlying listener fails. go-osc's Server has no cancellation hook
// of its own, so on ctx.Done this returns while the listener goroutine is
// left running until process exit — acceptable for a control-thread
// component that lives for the process lifetime.
func (s *Server) ListenAndServe(ctx context.Context) error {
	dispatcher := osc.NewStandardDispatcher()
	if err := dispatcher.AddMsgHandler(busAddressPrefix+"*", s.handle); err != nil {
		return fmt.Errorf("control: registering OSC handler: %w", err)
	}

	srv := &osc.Server{Addr: s.addr, Dispatcher: dispatcher}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handle(msg *osc.Message) {
	name := strings.TrimPrefix(msg.Address, busAddressPrefix)
	if name == "" || len(msg.Arguments) == 0 {
		return
	}
	value, ok := argToFloat(msg.Arguments[0])
	if !ok {
		return
	}
	s.ring.Push(Write{Name: name, Value: value})
}

func argToFloat(arg interface{}) (float64, bool) {
	switch v := arg.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
