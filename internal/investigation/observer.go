package investigation

import (
	"context"
	"github.com/myrjola/blackwood/internal/models"
)

// Observer is notified about investigation events. Notifications are delivered synchronously after the controller
// has released its lock, so observers may call back into the controller.
type Observer interface {
	CharacterSelected(ctx context.Context, id models.CharacterID)
	EvidenceFound(ctx context.Context, label string)
	ProgressChanged(ctx context.Context, progress int)
}

// ObserverFuncs adapts plain functions to an Observer. Nil functions are skipped.
type ObserverFuncs struct {
	OnCharacterSelected func(ctx context.Context, id models.CharacterID)
	OnEvidenceFound     func(ctx context.Context, label string)
	OnProgressChanged   func(ctx context.Context, progress int)
}

func (o ObserverFuncs) CharacterSelected(ctx context.Context, id models.CharacterID) {
	if o.OnCharacterSelected != nil {
		o.OnCharacterSelected(ctx, id)
	}
}

func (o ObserverFuncs) EvidenceFound(ctx context.Context, label string) {
	if o.OnEvidenceFound != nil {
		o.OnEvidenceFound(ctx, label)
	}
}

func (o ObserverFuncs) ProgressChanged(ctx context.Context, progress int) {
	if o.OnProgressChanged != nil {
		o.OnProgressChanged(ctx, progress)
	}
}

// notification is queued while the lock is held and delivered afterwards.
type notification func(ctx context.Context, o Observer)

func characterSelected(id models.CharacterID) notification {
	return func(ctx context.Context, o Observer) { o.CharacterSelected(ctx, id) }
}

func evidenceFound(label string) notification {
	return func(ctx context.Context, o Observer) { o.EvidenceFound(ctx, label) }
}

func progressChanged(progress int) notification {
	return func(ctx context.Context, o Observer) { o.ProgressChanged(ctx, progress) }
}
