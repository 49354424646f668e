package registry

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/pkg/errors"
)

const (
	childStorageKey       = "child-storage"
	daycareStorageKey     = "daycare-storage"
	clinicStorageKey      = "clinic-storage"
	appointmentStorageKey = "appointment-storage"
	outboxStorageKey      = "sync-outbox"
)

var ErrUnknownKind = errors.New("unknown entity kind")

// Workspace groups the stores of one parent.
type Workspace struct {
	OwnerId      string
	Children     *ChildStore
	Daycares     *DaycareStore
	Clinics      *ClinicStore
	Appointments *AppointmentStore
	Outbox       *Outbox

	synced map[Kind]bool
}

// Synced reports whether changes of kind are recorded for the remote store.
func (w *Workspace) Synced(kind Kind) bool {
	return w.synced[kind]
}

func (w *Workspace) SyncedKinds() []Kind {
	kinds := []Kind{}
	for _, kind := range AllKinds {
		if w.synced[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// LastUpdate returns the local modification time of an entity.
func (w *Workspace) LastUpdate(kind Kind, id string) (time.Time, bool) {
	switch kind {
	case KindChild:
		return w.Children.c.lastUpdate(id)
	case KindDaycare:
		return w.Daycares.c.lastUpdate(id)
	case KindClinic:
		return w.Clinics.c.lastUpdate(id)
	case KindAppointment:
		return w.Appointments.c.lastUpdate(id)
	}
	return time.Time{}, false
}

// ApplyRemote merges a remote document into the matching store. Older documents are ignored.
func (w *Workspace) ApplyRemote(ctx context.Context, kind Kind, payload json.RawMessage) (bool, error) {
	switch kind {
	case KindChild:
		var child Child
		if err := json.Unmarshal(payload, &child); err != nil {
			return false, errors.Wrap(err, "failed to decode remote child")
		}
		return w.Children.c.applyRemote(ctx, child)
	case KindDaycare:
		var daycare Daycare
		if err := json.Unmarshal(payload, &daycare); err != nil {
			return false, errors.Wrap(err, "failed to decode remote daycare")
		}
		return w.Daycares.c.applyRemote(ctx, daycare)
	case KindClinic:
		var clinic Clinic
		if err := json.Unmarshal(payload, &clinic); err != nil {
			return false, errors.Wrap(err, "failed to decode remote clinic")
		}
		return w.Clinics.c.applyRemote(ctx, clinic)
	case KindAppointment:
		var appointment Appointment
		if err := json.Unmarshal(payload, &appointment); err != nil {
			return false, errors.Wrap(err, "failed to decode remote appointment")
		}
		return w.Appointments.c.applyRemote(ctx, appointment)
	}
	return false, errors.Wrapf(ErrUnknownKind, "%s", kind)
}

// Manager opens workspaces lazily and keeps them for the life of the process.
type Manager struct {
	Mirror          Mirror            `inject:""`
	StringGenerator IdGenerator       `inject:""`
	Clock           Clock             `inject:""`
	Broadcaster     *Broadcaster      `inject:""`
	MeetingLinks    LinkGenerator     `inject:""`
	Config          *shared.AppConfig `inject:""`
	Logger          *shared.Logger    `inject:""`

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func (m *Manager) Open(ctx context.Context, ownerId string) (*Workspace, error) {
	if ownerId == "" {
		return nil, errors.New("owner id is mandatory")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.workspaces[ownerId]; ok {
		return ws, nil
	}

	ws, err := m.load(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	if m.workspaces == nil {
		m.workspaces = map[string]*Workspace{}
	}
	m.workspaces[ownerId] = ws
	m.Logger.Info(ctx, "workspace opened", "ownerId", ownerId, "pendingChanges", len(ws.Outbox.Pending()))
	return ws, nil
}

// Restore opens every workspace that has a mirrored outbox, so changes queued before a restart
// are pushed without waiting for the parent to come back.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	keys, err := m.Mirror.Keys(ctx, "")
	if err != nil {
		return 0, errors.Wrap(err, "failed to list mirrored workspaces")
	}
	restored := 0
	for _, key := range keys {
		ownerId := strings.TrimSuffix(key, "/"+outboxStorageKey)
		if ownerId == key || ownerId == "" {
			continue
		}
		if _, err := m.Open(ctx, ownerId); err != nil {
			return restored, errors.Wrapf(err, "failed to restore workspace of %s", ownerId)
		}
		restored++
	}
	return restored, nil
}

// Close evicts the cached workspace. Persisted state is kept.
func (m *Manager) Close(ownerId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workspaces, ownerId)
}

// Workspaces returns the open workspaces ordered by owner.
func (m *Manager) Workspaces() []*Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		list = append(list, ws)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].OwnerId < list[j].OwnerId })
	return list
}

func (m *Manager) load(ctx context.Context, ownerId string) (*Workspace, error) {
	ws := &Workspace{
		OwnerId: ownerId,
		Outbox:  newOutbox(m.Mirror, ownerId+"/"+outboxStorageKey),
		synced: map[Kind]bool{
			KindChild:       true,
			KindDaycare:     m.Config.SyncAllEntities,
			KindClinic:      m.Config.SyncAllEntities,
			KindAppointment: m.Config.SyncAllEntities,
		},
	}
	if err := ws.Outbox.load(ctx); err != nil {
		return nil, err
	}

	var sampleDaycares []Daycare
	var sampleClinics []Clinic
	if m.Config.SeedSampleFacilities {
		sampleDaycares, sampleClinics = SampleDaycares, SampleClinics
	}

	ws.Children = &ChildStore{c: newCollection[Child](m, ws, KindChild, childStorageKey, ErrChildNotFound, selectFirstRemaining)}
	ws.Daycares = &DaycareStore{c: newCollection[Daycare](m, ws, KindDaycare, daycareStorageKey, ErrDaycareNotFound, clearSelection)}
	ws.Clinics = &ClinicStore{c: newCollection[Clinic](m, ws, KindClinic, clinicStorageKey, ErrClinicNotFound, clearSelection)}
	ws.Appointments = &AppointmentStore{
		c:     newCollection[Appointment](m, ws, KindAppointment, appointmentStorageKey, ErrAppointmentNotFound, clearSelection),
		links: m.MeetingLinks,
	}
	ws.Appointments.c.merge = keepLifecycle

	if err := ws.Children.c.load(ctx, nil); err != nil {
		return nil, err
	}
	if err := ws.Daycares.c.load(ctx, sampleDaycares); err != nil {
		return nil, err
	}
	if err := ws.Clinics.c.load(ctx, sampleClinics); err != nil {
		return nil, err
	}
	if err := ws.Appointments.c.load(ctx, nil); err != nil {
		return nil, err
	}
	return ws, nil
}

func newCollection[T any, P entity[T]](m *Manager, ws *Workspace, kind Kind, key string, notFound error, onDelete deletePolicy) *collection[T, P] {
	c := &collection[T, P]{
		ownerId:  ws.OwnerId,
		kind:     kind,
		key:      ws.OwnerId + "/" + key,
		notFound: notFound,
		onDelete: onDelete,
		mirror:   m.Mirror,
		ids:      m.StringGenerator,
		clock:    m.Clock,
		events:   m.Broadcaster,
	}
	if ws.synced[kind] {
		c.outbox = ws.Outbox
	}
	return c
}
