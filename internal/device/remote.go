package device

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/mcrav/xdl/internal/ctxlog"
)

const (
	commandEvent = "xdl_command"
	ackEvent     = "xdl_ack"

	connectTimeout = 15 * time.Second
)

// RemoteConfig configures the connection to a rig server.
type RemoteConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	// CommandTimeout bounds every command acknowledgement. Waits are
	// executed locally and are not subject to it.
	CommandTimeout time.Duration
}

// Remote drives a rig over socket.io: one command event per base step,
// blocking until the rig acknowledges it. Sensor reads go over the same
// channel.
type Remote struct {
	io      *socket.Socket
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan remoteReply
}

type remoteReply struct {
	OK    bool    `json:"ok"`
	Error string  `json:"error"`
	Value float64 `json:"value"`
}

// DialRemote connects to a rig server and subscribes to acknowledgements.
func DialRemote(ctx context.Context, cfg RemoteConfig) (*Remote, error) {
	logger := ctxlog.FromContext(ctx).With("driver", "remote", "url", cfg.URL)
	logger.Info("Connecting to rig server...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- errs[0].(error)
	})
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}

	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	d := &Remote{
		io:      io,
		timeout: timeout,
		pending: map[string]chan remoteReply{},
	}
	io.On(types.EventName(ackEvent), d.onAck)
	return d, nil
}

// Close disconnects from the rig server.
func (d *Remote) Close() error {
	d.io.Disconnect()
	return nil
}

// onAck routes an acknowledgement to the command waiting for it.
func (d *Remote) onAck(data ...any) {
	if len(data) == 0 {
		return
	}
	var reply struct {
		ID string `json:"id"`
		remoteReply
	}
	switch v := data[0].(type) {
	case map[string]any:
		raw, _ := json.Marshal(v)
		if json.Unmarshal(raw, &reply) != nil {
			return
		}
	case string:
		if json.Unmarshal([]byte(v), &reply) != nil {
			return
		}
	default:
		return
	}

	d.mu.Lock()
	ch, ok := d.pending[reply.ID]
	delete(d.pending, reply.ID)
	d.mu.Unlock()
	if ok {
		ch <- reply.remoteReply
	}
}

// command emits one command event and blocks for its acknowledgement.
func (d *Remote) command(ctx context.Context, op string, payload map[string]any) (float64, error) {
	id := uuid.NewString()
	msg := map[string]any{"id": id, "op": op}
	for k, v := range payload {
		msg[k] = v
	}

	ch := make(chan remoteReply, 1)
	d.mu.Lock()
	d.pending[id] = ch
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
	}()

	d.io.Emit(commandEvent, msg)

	select {
	case reply := <-ch:
		if !reply.OK {
			return 0, fmt.Errorf("rig rejected %s: %s", op, reply.Error)
		}
		return reply.Value, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(d.timeout):
		return 0, fmt.Errorf("timed out waiting for %s acknowledgement", op)
	}
}

func (d *Remote) Move(ctx context.Context, p MoveParams) error {
	_, err := d.command(ctx, "move", map[string]any{
		"from":             p.From,
		"to":               p.To,
		"from_port":        p.FromPort,
		"to_port":          p.ToPort,
		"through":          p.Through,
		"volume":           p.Volume,
		"move_speed":       p.MoveSpeed,
		"aspiration_speed": p.AspirationSpeed,
		"dispense_speed":   p.DispenseSpeed,
	})
	return err
}

func (d *Remote) StartStir(ctx context.Context, vessel string, speed float64) error {
	_, err := d.command(ctx, "start_stir", map[string]any{"vessel": vessel, "speed": speed})
	return err
}

func (d *Remote) StopStir(ctx context.Context, vessel string) error {
	_, err := d.command(ctx, "stop_stir", map[string]any{"vessel": vessel})
	return err
}

func (d *Remote) SetStirRate(ctx context.Context, vessel string, speed float64) error {
	_, err := d.command(ctx, "set_stir_rate", map[string]any{"vessel": vessel, "speed": speed})
	return err
}

func (d *Remote) StartHeat(ctx context.Context, vessel string, temp float64) error {
	_, err := d.command(ctx, "start_heat", map[string]any{"vessel": vessel, "temp": temp})
	return err
}

func (d *Remote) StopHeat(ctx context.Context, vessel string) error {
	_, err := d.command(ctx, "stop_heat", map[string]any{"vessel": vessel})
	return err
}

func (d *Remote) StartVacuum(ctx context.Context, vessel string, pressure float64) error {
	_, err := d.command(ctx, "start_vacuum", map[string]any{"vessel": vessel, "pressure": pressure})
	return err
}

func (d *Remote) StopVacuum(ctx context.Context, vessel string) error {
	_, err := d.command(ctx, "stop_vacuum", map[string]any{"vessel": vessel})
	return err
}

func (d *Remote) StartRotation(ctx context.Context, vessel string, speed float64) error {
	_, err := d.command(ctx, "start_rotation", map[string]any{"vessel": vessel, "speed": speed})
	return err
}

func (d *Remote) StopRotation(ctx context.Context, vessel string) error {
	_, err := d.command(ctx, "stop_rotation", map[string]any{"vessel": vessel})
	return err
}

// Wait runs locally; the rig has nothing to do while the procedure holds.
func (d *Remote) Wait(ctx context.Context, dur time.Duration) error {
	select {
	case <-time.After(dur):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Remote) Confirm(ctx context.Context, msg string) error {
	// Confirmation is answered by the operator on the rig side, so it is
	// exempt from the command timeout.
	id := uuid.NewString()
	ch := make(chan remoteReply, 1)
	d.mu.Lock()
	d.pending[id] = ch
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
	}()

	d.io.Emit(commandEvent, map[string]any{"id": id, "op": "confirm", "msg": msg})

	select {
	case reply := <-ch:
		if !reply.OK {
			return fmt.Errorf("rig rejected confirm: %s", reply.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Remote) ReadTemp(ctx context.Context, vessel string) (float64, error) {
	return d.command(ctx, "read_temp", map[string]any{"vessel": vessel})
}
