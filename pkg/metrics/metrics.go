package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 提交结果
const (
	OutcomeRecorded            = "recorded"
	OutcomeRejected            = "rejected"
	OutcomeDatabaseUnavailable = "database_unavailable"
	OutcomeStorageUnavailable  = "storage_unavailable"
	OutcomeStorageWriteFailed  = "storage_write_failed"
	OutcomePersistenceFailed   = "persistence_failed"
)

// 补偿结果
const (
	CompensationRemoved = "removed"
	CompensationFailed  = "failed"
)

// CheckInMetrics 签到提交与照片补偿计数
type CheckInMetrics struct {
	submissions   *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

// NewCheckInMetrics 在 reg 上注册指标，reg 为 nil 时不注册
func NewCheckInMetrics(reg prometheus.Registerer) *CheckInMetrics {
	m := &CheckInMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkin",
			Name:      "submissions_total",
			Help:      "Check-in submissions by outcome.",
		}, []string{"outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkin",
			Name:      "compensations_total",
			Help:      "Photo deletions after a failed record insert, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.submissions, m.compensations)
	}
	return m
}

// ObserveSubmission 记录一次提交
func (m *CheckInMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveCompensation 记录一次补偿
func (m *CheckInMetrics) ObserveCompensation(result string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(result).Inc()
}
