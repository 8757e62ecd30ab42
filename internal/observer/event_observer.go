package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// AnalysisEvent represents an analysis or feedback event
type AnalysisEvent struct {
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	// Source is the upload filename or the fetched URL.
	Source         string                 `json:"source"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	Score          int                    `json:"score,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of analysis event
type EventType string

const (
	// AnalysisStarted when analysis begins
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when a score was produced
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when analysis fails
	AnalysisFailed EventType = "analysis_failed"
	// ImageFetched when a remote image was downloaded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a remote image could not be downloaded
	ImageFetchFailed EventType = "image_fetch_failed"
	// FeedbackReceived when a feedback entry was stored
	FeedbackReceived EventType = "feedback_received"
)

// scoreWindow bounds the scores kept for the running summary.
const scoreWindow = 1000

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
	// Wait blocks until every dispatched notification has been handled.
	Wait()
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"source":          event.Source,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.EventType == AnalysisCompleted {
		fields["score"] = event.Score
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Debug("Image analysis started")
	case AnalysisCompleted:
		entry.Info("Image analysis completed")
	case AnalysisFailed:
		entry.Error("Image analysis failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	case FeedbackReceived:
		entry.Info("Feedback received")
	default:
		entry.Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a snapshot of the MetricsObserver counters.
type Metrics struct {
	TotalAnalyses      int64   `json:"total_analyses"`
	SuccessfulAnalyses int64   `json:"successful_analyses"`
	FailedAnalyses     int64   `json:"failed_analyses"`
	FetchFailures      int64   `json:"fetch_failures"`
	FeedbackReceived   int64   `json:"feedback_received"`
	AvgProcessingMs    float64 `json:"avg_processing_ms"`
	// Mean and standard deviation of the most recent scores.
	ScoreMean   float64 `json:"score_mean"`
	ScoreStdDev float64 `json:"score_stddev"`
	// SuspiciousShare is the fraction of recent scores >= 50.
	SuspiciousShare float64 `json:"suspicious_share"`
}

// MetricsObserver collects metrics from analysis events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalAnalyses       int64
	successfulAnalyses  int64
	failedAnalyses      int64
	fetchFailures       int64
	feedbackReceived    int64
	totalProcessingTime time.Duration
	scores              []float64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.totalAnalyses++
	case AnalysisCompleted:
		o.successfulAnalyses++
		o.totalProcessingTime += event.ProcessingTime
		if len(o.scores) == scoreWindow {
			o.scores = o.scores[1:]
		}
		o.scores = append(o.scores, float64(event.Score))
	case AnalysisFailed:
		o.failedAnalyses++
	case ImageFetchFailed:
		o.fetchFailures++
	case FeedbackReceived:
		o.feedbackReceived++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m := Metrics{
		TotalAnalyses:      o.totalAnalyses,
		SuccessfulAnalyses: o.successfulAnalyses,
		FailedAnalyses:     o.failedAnalyses,
		FetchFailures:      o.fetchFailures,
		FeedbackReceived:   o.feedbackReceived,
	}
	if o.successfulAnalyses > 0 {
		avg := o.totalProcessingTime / time.Duration(o.successfulAnalyses)
		m.AvgProcessingMs = float64(avg) / float64(time.Millisecond)
	}

	switch len(o.scores) {
	case 0:
	case 1:
		m.ScoreMean = o.scores[0]
	default:
		m.ScoreMean, m.ScoreStdDev = stat.MeanStdDev(o.scores, nil)
	}
	if n := len(o.scores); n > 0 {
		suspicious := 0
		for _, s := range o.scores {
			if s >= 50 {
				suspicious++
			}
		}
		m.SuspiciousShare = float64(suspicious) / float64(n)
	}
	return m
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Observers outlive the request, so they must not inherit its cancellation
	ctx = context.WithoutCancel(ctx)

	// Notify observers concurrently
	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until all dispatched notifications have returned.
func (p *EventPublisher) Wait() {
	p.inflight.Wait()
}
