package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/narwhalmedia/gallery/pkg/blob"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

const (
	compensationDeleted = "deleted"
	compensationFailed  = "failed"
)

// SagaMetrics counts compensating deletes of uploaded photo binaries.
type SagaMetrics struct {
	Compensations *prometheus.CounterVec
}

// NewSagaMetrics registers the saga counters with reg.
func NewSagaMetrics(reg prometheus.Registerer) *SagaMetrics {
	return &SagaMetrics{
		Compensations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gallery",
				Name:      "saga_compensations_total",
				Help:      "Compensating deletes of uploaded photos by result",
			},
			[]string{"result"},
		),
	}
}

func (m *SagaMetrics) observe(result string) {
	if m == nil {
		return
	}
	m.Compensations.WithLabelValues(result).Inc()
}

// writeIntent tracks a photo between its provisional insert and its
// finalization. ArtifactKey is set once the binary has been uploaded and is
// the only thing compensation ever removes.
type writeIntent struct {
	ProvisionalID uuid.UUID
	ArtifactKey   string

	compensated sync.Once
}

// Compensation reasons.
const (
	reasonFinalizeFailed = "finalize_failed"
	reasonRolledBack     = "rolled_back"
)

// compensate deletes the uploaded binary of a photo whose record did not
// survive. The delete is attempted at most once per intent, whatever the
// number of failure paths that reach it; a failure leaves an orphaned object
// behind and is only logged.
func compensate(ctx context.Context, intent *writeIntent, reason string, store blob.Store, metrics *SagaMetrics, logger interfaces.Logger) {
	if intent == nil || intent.ArtifactKey == "" {
		return
	}
	intent.compensated.Do(func() {
		log := logger.WithContext(ctx).WithFields(
			interfaces.String("photo_id", intent.ProvisionalID.String()),
			interfaces.String("key", intent.ArtifactKey),
			interfaces.String("reason", reason))

		// the transaction deadline may already have fired
		if err := store.Delete(context.WithoutCancel(ctx), intent.ArtifactKey); err != nil {
			metrics.observe(compensationFailed)
			log.Warn("Failed to delete uploaded photo, object is orphaned", interfaces.Error(err))
			return
		}
		metrics.observe(compensationDeleted)
		log.Info("Deleted uploaded photo of a photo that was not saved")
	})
}
