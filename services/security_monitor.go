package services

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	failedLoginWindow    = 10 * time.Minute
	failedLoginThreshold = 5
	alertCooldown        = time.Hour
	maxAlerts            = 100
)

// LoginMonitor counts failed sign-ins per client IP and raises an alert
// when one address keeps failing
type LoginMonitor struct {
	mu           sync.Mutex
	failedLogins map[string][]time.Time
	alertedIPs   map[string]time.Time
	alerts       []SecurityAlert

	mailer   Mailer // optional
	opsEmail string
	log      *zap.Logger
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// SecurityAlert is one raised alert
type SecurityAlert struct {
	Timestamp time.Time
	IP        string
	Attempts  int
	Reason    string
}

// NewLoginMonitor starts a monitor. Alerts are mailed to opsEmail when
// both it and mailer are set.
func NewLoginMonitor(mailer Mailer, opsEmail string) *LoginMonitor {
	m := &LoginMonitor{
		failedLogins: make(map[string][]time.Time),
		alertedIPs:   make(map[string]time.Time),
		mailer:       mailer,
		opsEmail:     opsEmail,
		log:          zap.L().Named("security"),
		now:          time.Now,
		stop:         make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// Failed records a failed sign-in from ip
func (m *LoginMonitor) Failed(ip, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	windowStart := now.Add(-failedLoginWindow)
	attempts := m.failedLogins[ip][:0]
	for _, t := range m.failedLogins[ip] {
		if t.After(windowStart) {
			attempts = append(attempts, t)
		}
	}
	attempts = append(attempts, now)
	m.failedLogins[ip] = attempts

	if len(attempts) >= failedLoginThreshold {
		m.alertLocked(ip, email, len(attempts))
	}
}

// Succeeded forgets the failures of ip
func (m *LoginMonitor) Succeeded(ip string) {
	m.mu.Lock()
	delete(m.failedLogins, ip)
	m.mu.Unlock()
}

func (m *LoginMonitor) alertLocked(ip, email string, attempts int) {
	now := m.now()
	if last, ok := m.alertedIPs[ip]; ok && now.Sub(last) < alertCooldown {
		return
	}
	m.alertedIPs[ip] = now

	alert := SecurityAlert{
		Timestamp: now,
		IP:        ip,
		Attempts:  attempts,
		Reason:    "Multiple failed logins detected",
	}
	m.alerts = append([]SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > maxAlerts {
		m.alerts = m.alerts[:maxAlerts]
	}

	m.log.Warn("[SECURITY ALERT] repeated failed logins",
		zap.String("ip", ip),
		zap.String("last_email", email),
		zap.Int("attempts", attempts),
	)

	if m.mailer == nil || m.opsEmail == "" {
		return
	}
	SendEmailAsync(m.mailer, &Email{
		To:      []string{m.opsEmail},
		Subject: "Security alert: repeated failed logins",
		TextBody: fmt.Sprintf("%d failed sign-ins from %s within %s.\nLast email tried: %s\nTime: %s\n",
			attempts, ip, failedLoginWindow, email, now.Format(time.RFC1123)),
	})
}

// Alerts returns the raised alerts, newest first
func (m *LoginMonitor) Alerts() []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SecurityAlert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Close stops the cleanup goroutine
func (m *LoginMonitor) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *LoginMonitor) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}
		m.mu.Lock()
		now := m.now()
		for ip, attempts := range m.failedLogins {
			if len(attempts) == 0 || now.Sub(attempts[len(attempts)-1]) > failedLoginWindow {
				delete(m.failedLogins, ip)
			}
		}
		for ip, last := range m.alertedIPs {
			if now.Sub(last) > alertCooldown {
				delete(m.alertedIPs, ip)
			}
		}
		m.mu.Unlock()
	}
}
