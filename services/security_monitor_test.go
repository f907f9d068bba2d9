package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []*Email
}

func (r *recordingMailer) Send(_ context.Context, email *Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, email)
	return nil
}

func (r *recordingMailer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestLoginMonitor(t *testing.T) {
	mailer := &recordingMailer{}
	m := NewLoginMonitor(mailer, "ops@example.com")
	defer m.Close()
	ip := "127.0.0.1"

	t.Run("alerts after repeated failures", func(t *testing.T) {
		for i := 0; i < failedLoginThreshold; i++ {
			m.Failed(ip, "a@example.com")
		}
		alerts := m.Alerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, ip, alerts[0].IP)
		assert.Equal(t, failedLoginThreshold, alerts[0].Attempts)
		assert.Eventually(t, func() bool { return mailer.count() == 1 }, time.Second, 10*time.Millisecond)
	})

	t.Run("one alert per cooldown", func(t *testing.T) {
		for i := 0; i < failedLoginThreshold; i++ {
			m.Failed(ip, "a@example.com")
		}
		assert.Len(t, m.Alerts(), 1)
	})

	t.Run("success resets the count", func(t *testing.T) {
		other := "10.0.0.2"
		for i := 0; i < failedLoginThreshold-1; i++ {
			m.Failed(other, "b@example.com")
		}
		m.Succeeded(other)
		m.Failed(other, "b@example.com")
		assert.Len(t, m.Alerts(), 1)
	})

	t.Run("old failures fall out of the window", func(t *testing.T) {
		stale := "10.0.0.3"
		base := time.Now()
		m.now = func() time.Time { return base }
		for i := 0; i < failedLoginThreshold-1; i++ {
			m.Failed(stale, "c@example.com")
		}
		m.now = func() time.Time { return base.Add(failedLoginWindow + time.Minute) }
		m.Failed(stale, "c@example.com")
		m.now = time.Now
		assert.Len(t, m.Alerts(), 1)
	})
}
