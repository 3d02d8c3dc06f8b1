// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	logins        *prometheus.CounterVec
	registrations prometheus.Counter
	scans         *prometheus.CounterVec
	verifications *prometheus.CounterVec
	codesIssued   prometheus.Counter
	gateDenials   prometheus.Counter
	activeSession *prometheus.GaugeVec
	adviceCalls   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unismart_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unismart_registrations_total",
			Help: "Successful self registrations.",
		}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unismart_attendance_scans_total",
			Help: "Attendance scans by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unismart_attendance_verifications_total",
			Help: "Processed attendance verifications by result.",
		}, []string{"result"}),
		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unismart_attendance_codes_issued_total",
			Help: "Attendance display codes issued.",
		}),
		gateDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unismart_attendance_gate_denials_total",
			Help: "Attendance code requests denied by the gate.",
		}),
		activeSession: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "unismart_schedule_active_session",
			Help: "1 for the timetable entry currently live, 0 otherwise.",
		}, []string{"schedule_id"}),
		adviceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unismart_advisor_calls_total",
			Help: "Generative advisor calls by kind and result.",
		}, []string{"kind", "result"}),
	}
	for _, c := range []prometheus.Collector{
		m.logins, m.registrations, m.scans, m.verifications,
		m.codesIssued, m.gateDenials, m.activeSession, m.adviceCalls,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewMock returns collectors registered with a private registry.
func NewMock() *Metrics {
	m, _ := New(prometheus.NewRegistry())
	return m
}

func (m *Metrics) RecordLogin(ok bool) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// RecordScan counts a scan; outcome is recorded, duplicate or rejected.
func (m *Metrics) RecordScan(outcome string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordVerification(ok bool) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) RecordCodeIssued() {
	if m == nil {
		return
	}
	m.codesIssued.Inc()
}

func (m *Metrics) RecordGateDenial() {
	if m == nil {
		return
	}
	m.gateDenials.Inc()
}

// SetActiveSession marks id as the live entry. An empty id clears the gauge.
func (m *Metrics) SetActiveSession(id string) {
	if m == nil {
		return
	}
	m.activeSession.Reset()
	if id != "" {
		m.activeSession.WithLabelValues(id).Set(1)
	}
}

func (m *Metrics) RecordAdvisorCall(kind string, ok bool) {
	if m == nil {
		return
	}
	m.adviceCalls.WithLabelValues(kind, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
