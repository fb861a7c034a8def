package daw

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livebridge/livebridge/internal/dawerr"
)

// fakeDAW is a minimal scripted DAW endpoint: each accepted connection
// reads commands and answers with the next scripted response. An empty
// response string closes the connection without answering.
type fakeDAW struct {
	t  *testing.T
	ln net.Listener

	mu       sync.Mutex
	received []Command
	script   []string
}

func newFakeDAW(t *testing.T, script ...string) *fakeDAW {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeDAW{t: t, ln: ln, script: script}
	go f.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return f
}

func (f *fakeDAW) addr() string { return f.ln.Addr().String() }

func (f *fakeDAW) commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command{}, f.received...)
}

func (f *fakeDAW) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeDAW) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return
		}
		var cmd Command
		if json.Unmarshal(line, &cmd) != nil {
			return
		}

		f.mu.Lock()
		f.received = append(f.received, cmd)
		var reply string
		if len(f.script) > 0 {
			reply = f.script[0]
			f.script = f.script[1:]
		} else {
			reply = `{"status":"success"}`
		}
		f.mu.Unlock()

		if reply == "" {
			return // scripted connection drop
		}
		if _, err := conn.Write(append([]byte(reply), '\n')); err != nil {
			return
		}
	}
}

func testClient(t *testing.T, addr string, onConnected func()) *TCPClient {
	t.Helper()
	c := NewTCPClient(addr, zerolog.Nop(), onConnected)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSendSuccess(t *testing.T) {
	daw := newFakeDAW(t, `{"status":"success","result":{"tempo":128}}`)
	connected := false
	c := testClient(t, daw.addr(), func() { connected = true })

	resp, err := c.Send(context.Background(), Command{Type: "set_tempo", Params: map[string]any{"bpm": 128.0}},
		SendSpec{Timeout: 2 * time.Second, Idempotent: true})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.True(t, connected, "first connect must fire the readiness callback")

	cmds := daw.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "set_tempo", cmds[0].Type)
}

func TestSendDawReportedError(t *testing.T) {
	daw := newFakeDAW(t, `{"status":"error","message":"unknown device"}`)
	c := testClient(t, daw.addr(), nil)

	_, err := c.Send(context.Background(), Command{Type: "load_instrument_or_effect"},
		SendSpec{Timeout: 2 * time.Second})
	require.Error(t, err)
	assert.Equal(t, dawerr.KindDawReported, dawerr.KindOf(err))
	assert.Contains(t, err.Error(), "unknown device")
}

func TestIdempotentRetriesOnceAfterConnectionDrop(t *testing.T) {
	// First connection drops without answering; the retry lands on a
	// fresh connection and succeeds. Exactly two attempts total.
	daw := newFakeDAW(t, "", `{"status":"success","result":{}}`)
	c := testClient(t, daw.addr(), nil)

	resp, err := c.Send(context.Background(), Command{Type: "get_session_info"},
		SendSpec{Timeout: 2 * time.Second, Idempotent: true})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Len(t, daw.commands(), 2)
}

func TestNonIdempotentNeverRetries(t *testing.T) {
	daw := newFakeDAW(t, "", `{"status":"success"}`)
	c := testClient(t, daw.addr(), nil)

	_, err := c.Send(context.Background(), Command{Type: "create_midi_track"},
		SendSpec{Timeout: 2 * time.Second, Idempotent: false})
	require.Error(t, err)
	assert.Equal(t, dawerr.KindDisconnected, dawerr.KindOf(err))
	assert.Len(t, daw.commands(), 1, "non-idempotent command must be attempted at most once")
}

func TestSendTimeoutKind(t *testing.T) {
	// An endpoint that accepts but never answers must fail with Timeout,
	// not hang.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	c := testClient(t, ln.Addr().String(), nil)
	start := time.Now()
	_, err = c.Send(context.Background(), Command{Type: "create_scene"},
		SendSpec{Timeout: 200 * time.Millisecond, Idempotent: false})
	require.Error(t, err)
	assert.Equal(t, dawerr.KindTimeout, dawerr.KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPostDelayHeldBeforeNextCommand(t *testing.T) {
	daw := newFakeDAW(t)
	c := testClient(t, daw.addr(), nil)
	ctx := context.Background()

	// The post-delay is held under the writer mutex before Send returns,
	// so a tier-2 call cannot complete in under its settling time and no
	// later command can start earlier.
	start := time.Now()
	_, err := c.Send(ctx, Command{Type: "create_midi_track"},
		SendSpec{Timeout: 2 * time.Second, PostDelay: 100 * time.Millisecond})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	instant := time.Now()
	_, err = c.Send(ctx, Command{Type: "set_tempo"}, SendSpec{Timeout: 2 * time.Second, Idempotent: true})
	require.NoError(t, err)
	assert.Less(t, time.Since(instant), 100*time.Millisecond, "tier-0 must carry no delay")
}
