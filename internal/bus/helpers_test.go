package bus

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/smartcowork/choreo/internal/bus/config"
	loggingpkg "github.com/smartcowork/choreo/internal/bus/logging"
)

type testPublisher struct {
	mu        sync.Mutex
	published map[string][]*message.Message
	err       error
}

func newTestPublisher() *testPublisher {
	return &testPublisher{published: make(map[string][]*message.Message)}
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published[topic] = append(p.published[topic], messages...)
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, 0, len(p.published))
	for topic := range p.published {
		topics = append(topics, topic)
	}
	return topics
}

func (p *testPublisher) Messages(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]*message.Message, len(p.published[topic]))
	copy(clone, p.published[topic])
	return clone
}

type testSubscriber struct {
	err error
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }

type recordedLog struct {
	level  string
	msg    string
	fields loggingpkg.LogFields
	err    error
}

type recordingLogger struct {
	mu   sync.Mutex
	logs []recordedLog
	with loggingpkg.LogFields
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{}
}

func (l *recordingLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	merged := make(loggingpkg.LogFields, len(l.with)+len(fields))
	for k, v := range l.with {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{logs: l.logs, with: merged}
}

func (l *recordingLogger) append(level, msg string, err error, fields loggingpkg.LogFields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, recordedLog{level: level, msg: msg, fields: fields, err: err})
}

func (l *recordingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	l.append("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(msg string, fields loggingpkg.LogFields) {
	l.append("info", msg, nil, fields)
}

func (l *recordingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.append("error", msg, err, fields)
}

func (l *recordingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	l.append("trace", msg, nil, fields)
}

func (l *recordingLogger) Logs() []recordedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	clone := make([]recordedLog, len(l.logs))
	copy(clone, l.logs)
	return clone
}

func newTestBus(t *testing.T) (*Bus, *testPublisher) {
	t.Helper()
	log := newRecordingLogger()
	wmLogger := loggingpkg.NewWatermillAdapter(log)
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		t.Fatalf("router init failed: %v", err)
	}
	pub := newTestPublisher()
	return &Bus{
		Conf:              &configpkg.Config{Enabled: true, ServiceName: "test"},
		Logger:            log,
		router:            router,
		publisher:         pub,
		subscriber:        &testSubscriber{},
		dedup:             newDedupCache(0),
		errorClassifier:   defaultErrorClassifier,
		metricsRegisterer: prometheus.NewRegistry(),
	}, pub
}

func newDisabledBus(t *testing.T) (*Bus, *recordingLogger) {
	t.Helper()
	log := newRecordingLogger()
	return &Bus{
		Conf:            &configpkg.Config{Enabled: false, ServiceName: "test"},
		Logger:          log,
		disabled:        true,
		dedup:           newDedupCache(0),
		errorClassifier: defaultErrorClassifier,
	}, log
}
