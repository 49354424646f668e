package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Vinubaba/TOUCH-API/metrics"
	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/pkg/errors"
)

// Document is an entity as held by the remote store.
type Document struct {
	Kind      registry.Kind
	Id        string
	OwnerId   string
	UpdatedAt time.Time
	Payload   json.RawMessage
}

type Remote interface {
	Get(ctx context.Context, kind registry.Kind, id string) (Document, bool, error)
	Put(ctx context.Context, doc Document) error
	Delete(ctx context.Context, kind registry.Kind, id string) error
	List(ctx context.Context, kind registry.Kind, ownerId string) ([]Document, error)
}

type WorkspaceSource interface {
	Open(ctx context.Context, ownerId string) (*registry.Workspace, error)
	Workspaces() []*registry.Workspace
}

type Report struct {
	Pushed    int `json:"pushed"`
	Conflicts int `json:"conflicts"`
	Failed    int `json:"failed"`
	Pulled    int `json:"pulled"`
}

// Reconciler drains workspace outboxes to the remote store and merges remote documents back.
// Conflicts resolve by last write wins on updatedAt.
type Reconciler struct {
	Remote     Remote            `inject:""`
	Workspaces WorkspaceSource   `inject:""`
	Config     *shared.AppConfig `inject:""`
	Logger     *shared.Logger    `inject:""`
}

func (r *Reconciler) Start(ctx context.Context) error {
	interval := r.Config.SyncInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.Logger.Info(ctx, "starting reconciler", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			r.Logger.Info(ctx, "reconciler stopped")
			return nil
		case <-ticker.C:
			r.SyncAll(ctx)
		}
	}
}

func (r *Reconciler) SyncAll(ctx context.Context) {
	workspaces := r.Workspaces.Workspaces()
	metrics.OpenWorkspaces.Set(float64(len(workspaces)))
	for _, ws := range workspaces {
		report, err := r.Sync(ctx, ws)
		if err != nil {
			r.Logger.Err(ctx, "failed to sync workspace", "ownerId", ws.OwnerId, "err", err)
			continue
		}
		if report != (Report{}) {
			r.Logger.Info(ctx, "workspace synced", "ownerId", ws.OwnerId,
				"pushed", report.Pushed, "conflicts", report.Conflicts, "failed", report.Failed, "pulled", report.Pulled)
		}
	}
}

// SyncOwner opens the workspace of the owner and syncs it right away.
func (r *Reconciler) SyncOwner(ctx context.Context, ownerId string) (Report, error) {
	ws, err := r.Workspaces.Open(ctx, ownerId)
	if err != nil {
		return Report{}, errors.Wrap(err, "failed to open workspace")
	}
	return r.Sync(ctx, ws)
}

// Sync pushes pending changes first, then pulls.
func (r *Reconciler) Sync(ctx context.Context, ws *registry.Workspace) (Report, error) {
	report := Report{}
	if err := r.Push(ctx, ws, &report); err != nil {
		return report, err
	}
	if err := r.Pull(ctx, ws, &report); err != nil {
		return report, err
	}
	return report, nil
}

// Push sends outbox changes in order. A failed change stays queued and holds back
// later changes of the same entity until the next pass.
func (r *Reconciler) Push(ctx context.Context, ws *registry.Workspace, report *Report) error {
	blocked := map[string]bool{}
	for _, change := range ws.Outbox.Pending() {
		entity := string(change.Kind) + "/" + change.EntityId
		if blocked[entity] {
			continue
		}

		conflict, err := r.push(ctx, ws, change)
		if err != nil {
			blocked[entity] = true
			report.Failed++
			metrics.SyncPushes.WithLabelValues(string(change.Kind), metrics.ResultFailed).Inc()
			r.Logger.Warn(ctx, "failed to push change", "ownerId", ws.OwnerId, "kind", change.Kind, "entityId", change.EntityId, "attempts", change.Attempts+1, "err", err)
			if err := ws.Outbox.Fail(ctx, change.Seq, err); err != nil {
				return errors.Wrap(err, "failed to record push failure")
			}
			continue
		}

		if conflict {
			report.Conflicts++
			metrics.SyncPushes.WithLabelValues(string(change.Kind), metrics.ResultConflict).Inc()
		} else {
			report.Pushed++
			metrics.SyncPushes.WithLabelValues(string(change.Kind), metrics.ResultPushed).Inc()
		}
		if err := ws.Outbox.Ack(ctx, change.Seq); err != nil {
			return errors.Wrap(err, "failed to acknowledge change")
		}
	}
	return nil
}

func (r *Reconciler) push(ctx context.Context, ws *registry.Workspace, change registry.Change) (bool, error) {
	switch change.Op {
	case registry.OpDelete:
		return false, r.Remote.Delete(ctx, change.Kind, change.EntityId)
	case registry.OpUpsert:
		current, found, err := r.Remote.Get(ctx, change.Kind, change.EntityId)
		if err != nil {
			return false, err
		}
		if found && current.UpdatedAt.After(change.ChangedAt) {
			if _, err := ws.ApplyRemote(ctx, change.Kind, current.Payload); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, r.Remote.Put(ctx, Document{
			Kind:      change.Kind,
			Id:        change.EntityId,
			OwnerId:   ws.OwnerId,
			UpdatedAt: change.ChangedAt,
			Payload:   change.Payload,
		})
	}
	return false, errors.Errorf("unsupported change operation %q", change.Op)
}

// Pull applies remote documents that are unknown locally or newer than the local copy.
// Entities with pending local changes are left to the next push.
func (r *Reconciler) Pull(ctx context.Context, ws *registry.Workspace, report *Report) error {
	for _, kind := range ws.SyncedKinds() {
		docs, err := r.Remote.List(ctx, kind, ws.OwnerId)
		if err != nil {
			return errors.Wrapf(err, "failed to list remote %s documents", kind)
		}
		for _, doc := range docs {
			if ws.Outbox.HasPending(kind, doc.Id) {
				continue
			}
			applied, err := ws.ApplyRemote(ctx, kind, doc.Payload)
			if err != nil {
				r.Logger.Warn(ctx, "skipping remote document", "ownerId", ws.OwnerId, "kind", kind, "entityId", doc.Id, "err", err)
				continue
			}
			if applied {
				report.Pulled++
				metrics.SyncPulls.WithLabelValues(string(kind)).Inc()
			}
		}
	}
	return nil
}
