//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/repository"
)

func TestReceiptRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewReceiptRepo(testPool)
	cleanup(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	r1 := &model.Receipt{ID: "01HRCPT1", UserID: "u1", ContentType: "application/pdf", Document: []byte("%PDF-1"), CreatedAt: now,
		Facts: model.ReceiptFacts{Number: "01HRCPT1", CourseID: "c1", Amount: 90000, Currency: "INR", PaymentID: "pay_1"}}
	r2 := &model.Receipt{ID: "01HRCPT2", UserID: "u1", ContentType: "application/pdf", Document: []byte("%PDF-2"), CreatedAt: now.Add(time.Second),
		Facts: model.ReceiptFacts{Number: "01HRCPT2", CourseID: "c2", Amount: 50000, Currency: "INR"}}
	for _, r := range []*model.Receipt{r1, r2} {
		if err := repo.Save(ctx, repository.NoTX, r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := repo.FindByID(ctx, repository.NoTX, "01HRCPT1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if string(got.Document) != "%PDF-1" || got.Facts.PaymentID != "pay_1" || got.Facts.Amount != 90000 {
		t.Errorf("unexpected receipt: %+v", got)
	}

	all, _ := repo.ListByUser(ctx, repository.NoTX, "u1", "")
	if len(all) != 2 || all[0].ID != "01HRCPT2" {
		t.Errorf("expected newest first across courses, got %d", len(all))
	}
	if all[0].Document != nil {
		t.Error("list must not load documents")
	}
	one, _ := repo.ListByUser(ctx, repository.NoTX, "u1", "c1")
	if len(one) != 1 {
		t.Errorf("expected course filter, got %d", len(one))
	}

	if _, err := repo.FindByID(ctx, repository.NoTX, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
