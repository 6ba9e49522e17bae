package offline_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rrens/zara-ai/internal/offline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponder(t *testing.T) {
	fixed := time.Date(2026, 3, 9, 14, 5, 0, 0, time.UTC)
	r := offline.NewResponderWithClock(func() time.Time { return fixed })

	tests := []struct {
		input string
		want  string
	}{
		{"What is 2+2?", "2 + 2 = 4"},
		{"12 * 7", "12 × 7 = 84"},
		{"what's 10 / 4", "10 ÷ 4 = 2.5"},
		{"3 - 5", "3 - 5 = -2"},
		{"1/0", "I can't divide by zero, even offline."},
		{"What time is it?", "It's 14:05."},
		{"what's the date", "Today is Monday, 9 March 2026."},
		{"thanks a lot", "You're welcome!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Respond(tt.input))
		})
	}
}

func TestResponder_GreetingAndFallback(t *testing.T) {
	r := offline.NewResponder()

	assert.Contains(t, r.Respond("Hello there"), "can't reach the AI service")
	assert.Contains(t, r.Respond("help"), "simple arithmetic")
	assert.Contains(t, r.Respond("Summarize the French revolution"), "offline")
	assert.NotEmpty(t, r.Respond(""))
}

func TestMonitor_SetOnlineNotifiesOnTransition(t *testing.T) {
	m := offline.NewMonitor(true)
	var changes []bool
	m.OnChange(func(online bool) { changes = append(changes, online) })

	m.SetOnline(true)
	m.SetOnline(false)
	m.SetOnline(false)
	m.SetOnline(true)

	assert.True(t, m.Online())
	assert.Equal(t, []bool{false, true}, changes)
}

func TestMonitor_RunFollowsProbe(t *testing.T) {
	m := offline.NewMonitor(true)
	var healthy atomic.Bool

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 10*time.Millisecond, func(ctx context.Context) error {
			if healthy.Load() {
				return nil
			}
			return errors.New("no route to host")
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return !m.Online() }, time.Second, 5*time.Millisecond)
	healthy.Store(true)
	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTCPProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	probe := offline.TCPProbe(ln.Addr().String())
	assert.NoError(t, probe(context.Background()))

	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	assert.Error(t, offline.TCPProbe(addr)(context.Background()))
}
