// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/samber/oops"
)

// DefaultTimeout bounds one call to the scoring service.
const DefaultTimeout = 10 * time.Second

// PredictionFraud is the model label for a fraudulent transaction.
const PredictionFraud = "Fraud"

// Outcome labels reported to the Recorder.
const (
	OutcomeOK            = "ok"
	OutcomeMLUnavailable = "ml_unavailable"
	OutcomeFailed        = "failed"
)

// maxResponseBytes caps how much of a scoring response is read.
const maxResponseBytes = 1 << 20

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Recorder receives scoring outcomes for metrics.
type Recorder interface {
	DetectOutcome(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) DetectOutcome(string) {}

// Result is returned to the client for a scored transaction.
type Result struct {
	Prediction    string         `json:"prediction"`
	RiskScore     int            `json:"riskScore"`
	IsFraud       bool           `json:"isFraud"`
	TransactionID string         `json:"transactionId"`
	Timestamp     string         `json:"timestamp"`
	Details       map[string]any `json:"details"`
}

type predictResponse struct {
	Prediction string `json:"prediction"`
}

// Scorer forwards transactions to the scoring endpoint.
type Scorer struct {
	endpoint url.URL
	client   Doer
	timeout  time.Duration
	now      func() time.Time
	intn     func(n int) int
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClient replaces the HTTP client.
func WithClient(c Doer) Option {
	return func(s *Scorer) { s.client = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) { s.timeout = d }
}

// WithClock sets the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// WithRandom sets the source of risk score jitter. intn must return a value
// in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Scorer) { s.intn = intn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) { s.logger = l }
}

// WithRecorder sets the Recorder that receives outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *Scorer) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewScorer creates a Scorer posting to endpoint.
func NewScorer(endpoint string, opts ...Option) (*Scorer, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, oops.Code("DETECT_CONFIG").With("endpoint", endpoint).Errorf("scoring endpoint must be an absolute URL")
	}

	s := &Scorer{
		endpoint: *u,
		client:   http.DefaultClient,
		timeout:  DefaultTimeout,
		now:      time.Now,
		intn:     rand.IntN,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	return s, nil
}

// Analyze scores tx. A refused connection yields CodeMLUnavailable; any
// other failure yields CodeAnalyzeFailed.
func (s *Scorer) Analyze(ctx context.Context, tx *Transaction) (*Result, error) {
	now := s.now()
	s.logger.InfoContext(ctx, "analyzing transaction",
		"amount", tx.Amount.String(),
		"sender", tx.SenderUPIID,
		"receiver", tx.ReceiverUPIID,
	)

	prediction, err := s.predict(ctx, now, tx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scoring request failed", "endpoint", s.endpoint.String(), "error", err)
		if errors.Is(err, syscall.ECONNREFUSED) {
			s.recorder.DetectOutcome(OutcomeMLUnavailable)
			return nil, oops.Code(CodeMLUnavailable).
				With("endpoint", s.endpoint.String()).
				Wrapf(err, "%s", MsgMLUnavailable)
		}
		s.recorder.DetectOutcome(OutcomeFailed)
		return nil, oops.Code(CodeAnalyzeFailed).
			With("endpoint", s.endpoint.String()).
			Wrapf(err, "%s", MsgAnalyzeFailed)
	}

	isFraud := prediction == PredictionFraud
	risk := s.intn(40)
	if isFraud {
		risk = 70 + s.intn(30)
	}

	s.recorder.DetectOutcome(OutcomeOK)
	return &Result{
		Prediction:    prediction,
		RiskScore:     risk,
		IsFraud:       isFraud,
		TransactionID: fmt.Sprintf("UPI%d", now.UnixMilli()),
		Timestamp:     now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Details:       tx.Details,
	}, nil
}

// predict posts the model payload and returns the prediction label.
func (s *Scorer) predict(ctx context.Context, now time.Time, tx *Transaction) (string, error) {
	payload, err := json.Marshal(modelPayload(now, tx))
	if err != nil {
		return "", oops.Wrapf(err, "encode model payload")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return "", oops.Wrapf(err, "build scoring request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", oops.Wrapf(err, "call scoring service")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", oops.Wrapf(err, "read scoring response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", oops.With("status", resp.StatusCode).Errorf("scoring service responded with status %d", resp.StatusCode)
	}

	var pr predictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", oops.Wrapf(err, "decode scoring response")
	}
	if pr.Prediction == "" {
		return "", oops.Errorf("scoring response has no prediction")
	}
	return pr.Prediction, nil
}

// modelPayload builds the feature map the model consumes: Time in epoch
// seconds, Amount and V1..V28.
func modelPayload(now time.Time, tx *Transaction) map[string]any {
	payload := make(map[string]any, FeatureCount+2)
	payload["Time"] = float64(now.UnixMilli()) / 1000
	payload["Amount"] = tx.Amount.InexactFloat64()
	for i, v := range tx.Features {
		payload[fmt.Sprintf("V%d", i+1)] = v
	}
	return payload
}

// ClientDetail returns the explanation shown to clients next to a scoring
// failure.
func ClientDetail(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return err.Error()
	}
	if oopsErr.Code() == CodeMLUnavailable {
		return MsgStartMLService
	}
	if cause := oopsErr.Unwrap(); cause != nil {
		return cause.Error()
	}
	return oopsErr.Error()
}
