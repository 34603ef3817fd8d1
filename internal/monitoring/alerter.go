package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate AlertType = "run_failure_rate"
	AlertBlockedRuns    AlertType = "blocked_runs"
	AlertEmptyRuns      AlertType = "empty_runs"
)

// minFinishedRuns keeps a handful of runs from tripping rate alerts.
const minFinishedRuns = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.RunsComplete + snap.RunsFailed
	if a.cfg.FailureRateThreshold > 0 && finished >= minFinishedRuns && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"finished":     finished,
				"by_source":    sourceCounts(snap),
			},
			Timestamp: now,
		})
	}

	if a.cfg.BlockedRunsThreshold > 0 && snap.BlockedRuns >= a.cfg.BlockedRunsThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertBlockedRuns,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d run(s) blocked by anti-bot protection in last %dh",
				snap.BlockedRuns, snap.LookbackHours,
			),
			Details: map[string]any{
				"blocked":   snap.BlockedRuns,
				"threshold": a.cfg.BlockedRunsThreshold,
			},
			Timestamp: now,
		})
	}

	if a.cfg.EmptyRunRateThreshold > 0 && snap.RunsComplete >= minFinishedRuns && snap.EmptyRunRate > a.cfg.EmptyRunRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertEmptyRuns,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of complete runs found no reviews (%d / %d in last %dh)",
				snap.EmptyRunRate*100, snap.EmptyRuns, snap.RunsComplete, snap.LookbackHours,
			),
			Details: map[string]any{
				"empty_rate": snap.EmptyRunRate,
				"threshold":  a.cfg.EmptyRunRateThreshold,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// sourceCounts renders the per-source failure map with stable key order.
func sourceCounts(snap *Snapshot) []string {
	var out []string
	for src, n := range snap.BySource {
		out = append(out, fmt.Sprintf("%s=%d", src, n))
	}
	sort.Strings(out)
	return out
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
