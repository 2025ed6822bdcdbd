package executor

import (
	"sync"
	"time"

	"github.com/ZanzyTHEbar/virtualtools"
)

// ExecutorMetrics tracks statistics about step execution.
type ExecutorMetrics struct {
	StepsExecuted        int
	StepsSucceeded       int
	StepsFailed          int
	CorrectionsAttempted int
	CorrectionsSucceeded int
	CorrectionsFailed    int
	TotalDuration        time.Duration
	LongestStepTime      time.Duration

	mu sync.Mutex // Protects metrics updates
}

// Create a copy without the mutex
func (m *ExecutorMetrics) Copy() ExecutorMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return ExecutorMetrics{
		StepsExecuted:        m.StepsExecuted,
		StepsSucceeded:       m.StepsSucceeded,
		StepsFailed:          m.StepsFailed,
		CorrectionsAttempted: m.CorrectionsAttempted,
		CorrectionsSucceeded: m.CorrectionsSucceeded,
		CorrectionsFailed:    m.CorrectionsFailed,
		TotalDuration:        m.TotalDuration,
		LongestStepTime:      m.LongestStepTime,
	}
}

func (m *ExecutorMetrics) record(result virtualtools.StepResult, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StepsExecuted++
	if result.OK {
		m.StepsSucceeded++
	} else {
		m.StepsFailed++
	}
	m.TotalDuration += elapsed
	if elapsed > m.LongestStepTime {
		m.LongestStepTime = elapsed
	}
}

func (m *ExecutorMetrics) correctionAttempted() {
	m.mu.Lock()
	m.CorrectionsAttempted++
	m.mu.Unlock()
}

func (m *ExecutorMetrics) correctionSucceeded() {
	m.mu.Lock()
	m.CorrectionsSucceeded++
	m.mu.Unlock()
}

func (m *ExecutorMetrics) correctionFailed() {
	m.mu.Lock()
	m.CorrectionsFailed++
	m.mu.Unlock()
}

func (m *ExecutorMetrics) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StepsExecuted, m.StepsSucceeded, m.StepsFailed = 0, 0, 0
	m.CorrectionsAttempted, m.CorrectionsSucceeded, m.CorrectionsFailed = 0, 0, 0
	m.TotalDuration, m.LongestStepTime = 0, 0
}
