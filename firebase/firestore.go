package firebase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Vinubaba/TOUCH-API/reconcile"
	"github.com/Vinubaba/TOUCH-API/registry"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	parentsCollection = "parents"
	birthDateLayout   = "2006-01-02"
)

var ErrParentNotFound = errors.New("parent not found")

var collections = map[registry.Kind]string{
	registry.KindChild:       "children",
	registry.KindDaycare:     "daycares",
	registry.KindClinic:      "clinics",
	registry.KindAppointment: "appointments",
}

// Parent is the profile document stored under parents/{uid}.
type Parent struct {
	Id             string    `firestore:"id" json:"id"`
	Name           string    `firestore:"name" json:"name"`
	Email          string    `firestore:"email" json:"email"`
	Phone          string    `firestore:"phone" json:"phone"`
	Address        string    `firestore:"address" json:"address"`
	Workplace      string    `firestore:"workplace,omitempty" json:"workplace,omitempty"`
	WorkplacePhone string    `firestore:"workplacePhone,omitempty" json:"workplacePhone,omitempty"`
	BirthDate      string    `firestore:"birthDate,omitempty" json:"birthDate,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// Firestore is the remote document store of the reconciler and holds the parents profiles.
type Firestore struct {
	FirestoreClient *firestore.Client `inject:""`
}

func (f *Firestore) collection(kind registry.Kind) (*firestore.CollectionRef, error) {
	name, ok := collections[kind]
	if !ok {
		return nil, errors.Wrapf(registry.ErrUnknownKind, "%s", kind)
	}
	return f.FirestoreClient.Collection(name), nil
}

func (f *Firestore) Get(ctx context.Context, kind registry.Kind, id string) (reconcile.Document, bool, error) {
	col, err := f.collection(kind)
	if err != nil {
		return reconcile.Document{}, false, err
	}
	snap, err := col.Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return reconcile.Document{}, false, nil
	}
	if err != nil {
		return reconcile.Document{}, false, errors.Wrapf(err, "failed to get %s %s", kind, id)
	}
	doc, err := toDocument(kind, snap)
	if err != nil {
		return reconcile.Document{}, false, err
	}
	return doc, true, nil
}

func (f *Firestore) Put(ctx context.Context, doc reconcile.Document) error {
	col, err := f.collection(doc.Kind)
	if err != nil {
		return err
	}
	data, err := fromDocument(doc)
	if err != nil {
		return err
	}
	if _, err := col.Doc(doc.Id).Set(ctx, data); err != nil {
		return errors.Wrapf(err, "failed to set %s %s", doc.Kind, doc.Id)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, kind registry.Kind, id string) error {
	col, err := f.collection(kind)
	if err != nil {
		return err
	}
	if _, err := col.Doc(id).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return errors.Wrapf(err, "failed to delete %s %s", kind, id)
	}
	return nil
}

func (f *Firestore) List(ctx context.Context, kind registry.Kind, ownerId string) ([]reconcile.Document, error) {
	col, err := f.collection(kind)
	if err != nil {
		return nil, err
	}

	iter := col.Where("ownerId", "==", ownerId).Documents(ctx)
	defer iter.Stop()

	docs := []reconcile.Document{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list %s", kind)
		}
		doc, err := toDocument(kind, snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (f *Firestore) GetParent(ctx context.Context, uid string) (Parent, error) {
	snap, err := f.FirestoreClient.Collection(parentsCollection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Parent{}, ErrParentNotFound
	}
	if err != nil {
		return Parent{}, errors.Wrap(err, "failed to get parent")
	}
	var parent Parent
	if err := snap.DataTo(&parent); err != nil {
		return Parent{}, errors.Wrap(err, "failed to decode parent")
	}
	parent.Id = uid
	return parent, nil
}

func (f *Firestore) SetParent(ctx context.Context, parent Parent) error {
	if _, err := f.FirestoreClient.Collection(parentsCollection).Doc(parent.Id).Set(ctx, parent); err != nil {
		return errors.Wrap(err, "failed to set parent")
	}
	return nil
}

// fromDocument flattens the entity payload into firestore fields. Child birth dates become timestamps.
func fromDocument(doc reconcile.Document) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if err := json.Unmarshal(doc.Payload, &data); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s payload", doc.Kind)
	}
	data["id"] = doc.Id
	data["ownerId"] = doc.OwnerId
	data["updatedAt"] = doc.UpdatedAt

	if doc.Kind == registry.KindChild {
		if s, ok := data["birthDate"].(string); ok && s != "" {
			birthDate, err := time.Parse(birthDateLayout, s)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid birth date %q", s)
			}
			data["birthDate"] = birthDate
		}
	}
	return data, nil
}

func toDocument(kind registry.Kind, snap *firestore.DocumentSnapshot) (reconcile.Document, error) {
	data := snap.Data()

	doc := reconcile.Document{Kind: kind, Id: snap.Ref.ID}
	if ownerId, ok := data["ownerId"].(string); ok {
		doc.OwnerId = ownerId
	}
	if updatedAt, ok := data["updatedAt"].(time.Time); ok {
		doc.UpdatedAt = updatedAt.UTC()
		data["updatedAt"] = doc.UpdatedAt
	}
	if birthDate, ok := data["birthDate"].(time.Time); ok {
		data["birthDate"] = birthDate.UTC().Format(birthDateLayout)
	}
	data["id"] = doc.Id
	delete(data, "ownerId")

	payload, err := json.Marshal(data)
	if err != nil {
		return reconcile.Document{}, errors.Wrapf(err, "failed to encode %s %s", kind, doc.Id)
	}
	doc.Payload = payload
	return doc, nil
}
