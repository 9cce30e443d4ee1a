//go:build !integration

package events

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/infra/metrics"
)

type recordingViews struct{ dropped []string }

func (r *recordingViews) Invalidate(userID, courseID string) {
	r.dropped = append(r.dropped, userID+"/"+courseID)
}

func TestSubscribeViewInvalidation(t *testing.T) {
	bus := NewBus(newTestLogger())
	views := &recordingViews{}
	SubscribeViewInvalidation(bus, views)

	bus.Publish(context.Background(), model.EnrollmentCompleted{UserID: "u1", CourseID: "c1"})
	bus.Publish(context.Background(), model.AccessPending{UserID: "u1", CourseID: "c1"})

	if len(views.dropped) != 1 || views.dropped[0] != "u1/c1" {
		t.Fatalf("expected one invalidation for u1/c1, got %v", views.dropped)
	}
}

func eventCount(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "learnhub_domain_events_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "event" && lp.GetValue() == name {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestSubscribeMetrics(t *testing.T) {
	metrics.MustRegister()
	bus := NewBus(newTestLogger())
	SubscribeMetrics(bus)

	before := eventCount(t, model.EventReceiptIssued)
	bus.Publish(context.Background(), model.ReceiptIssued{ReceiptID: "r1"})
	if got := eventCount(t, model.EventReceiptIssued) - before; got != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", got)
	}
}
