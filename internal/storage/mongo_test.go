package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/manabu/internal/models"
)

func TestNewMongoStore_requiresURI(t *testing.T) {
	if _, err := NewMongoStore(context.Background(), "", "manabu"); err == nil {
		t.Error("expected error for empty uri")
	}
}

func TestMongoStore_emptyTenant(t *testing.T) {
	s := &MongoStore{}
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"AppendInteraction", func() error { return s.AppendInteraction(ctx, "", models.InteractionRecord{}) }},
		{"AppendQuizScore", func() error { return s.AppendQuizScore(ctx, "", models.QuizScoreRecord{}) }},
		{"AppendDocuments", func() error {
			return s.AppendDocuments(ctx, "", []models.DocumentRecord{{Filename: "a.pdf"}})
		}},
		{"ResetTenant", func() error { return s.ResetTenant(ctx, "") }},
		{"Tenant", func() error {
			_, err := s.Tenant(ctx, "")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrEmptyTenant) {
				t.Errorf("err = %v, want ErrEmptyTenant", err)
			}
		})
	}
}

func TestMongoStore_AppendDocuments_noneIsNoop(t *testing.T) {
	if err := (&MongoStore{}).AppendDocuments(context.Background(), "t1", nil); err != nil {
		t.Errorf("err = %v", err)
	}
}
