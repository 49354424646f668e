package children

import (
	"context"
	"strings"
	"time"

	"github.com/Vinubaba/TOUCH-API/claims"
	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"
	"github.com/Vinubaba/TOUCH-API/storage"

	"github.com/pkg/errors"
)

var (
	ErrNameRequired      = errors.New("name is mandatory")
	ErrBirthDateRequired = errors.New("birthDate is mandatory")
	ErrInvalidGender     = errors.New("gender must be one of male, female, other")
	ErrForeignImage      = errors.New("image must be a data URI, an http(s) URL or one of your stored images")
)

type Service interface {
	AddChild(ctx context.Context, request ChildTransport) (registry.Child, error)
	GetChild(ctx context.Context, childId string) (registry.Child, error)
	ListChildren(ctx context.Context) ([]registry.Child, error)
	UpdateChild(ctx context.Context, childId string, request ChildPatchTransport) (registry.Child, error)
	DeleteChild(ctx context.Context, childId string) error
	SelectChild(ctx context.Context, childId string) error
	UnselectChild(ctx context.Context, childId string) error
	SelectedChild(ctx context.Context) (registry.Child, bool, error)
}

type ChildService struct {
	Workspaces interface {
		Open(ctx context.Context, ownerId string) (*registry.Workspace, error)
	} `inject:""`
	Storage storage.Storage `inject:""`
	Clock   interface {
		Now() time.Time
	} `inject:""`
	Logger *shared.Logger `inject:""`
}

func (c *ChildService) AddChild(ctx context.Context, request ChildTransport) (registry.Child, error) {
	if strings.TrimSpace(request.Name) == "" {
		return registry.Child{}, ErrNameRequired
	}
	if request.BirthDate == "" {
		return registry.Child{}, ErrBirthDateRequired
	}
	if err := validateGender(request.Gender); err != nil {
		return registry.Child{}, err
	}
	birthDate, err := shared.ParseDate(request.BirthDate)
	if err != nil {
		return registry.Child{}, err
	}

	ws, err := c.workspace(ctx)
	if err != nil {
		return registry.Child{}, err
	}

	child := registry.Child{
		ParentId:          ws.OwnerId,
		Name:              strings.TrimSpace(request.Name),
		BirthDate:         birthDate.Format(shared.DateLayout),
		Age:               shared.AgeAt(birthDate, c.Clock.Now()),
		Gender:            request.Gender,
		Allergies:         nonNil(request.Allergies),
		MedicalConditions: nonNil(request.MedicalConditions),
	}
	var uploaded []string
	for _, image := range []struct {
		requested string
		target    *string
	}{
		{request.Photo, &child.Photo},
		{request.InsuranceCardImage, &child.InsuranceCardImage},
		{request.RecipientCertImage, &child.RecipientCertImage},
	} {
		stored, isNew, err := c.storeImage(ctx, image.requested)
		if err != nil {
			c.deleteImages(ctx, uploaded...)
			return registry.Child{}, err
		}
		if isNew {
			uploaded = append(uploaded, stored)
		}
		*image.target = stored
	}

	child, err = ws.Children.Add(ctx, child)
	if err != nil {
		c.deleteImages(ctx, uploaded...)
		return registry.Child{}, errors.Wrap(err, "failed to add child")
	}
	c.Logger.Info(ctx, "child added", "childId", child.Id)
	return c.withImageUris(ctx, child), nil
}

func (c *ChildService) GetChild(ctx context.Context, childId string) (registry.Child, error) {
	ws, err := c.workspace(ctx)
	if err != nil {
		return registry.Child{}, err
	}
	child, err := ws.Children.Get(childId)
	if err != nil {
		return registry.Child{}, errors.Wrap(err, "failed to get child")
	}
	return c.withImageUris(ctx, child), nil
}

func (c *ChildService) ListChildren(ctx context.Context) ([]registry.Child, error) {
	ws, err := c.workspace(ctx)
	if err != nil {
		return nil, err
	}
	children := ws.Children.List()
	for i := range children {
		children[i] = c.withImageUris(ctx, children[i])
	}
	return children, nil
}

func (c *ChildService) UpdateChild(ctx context.Context, childId string, request ChildPatchTransport) (registry.Child, error) {
	update := registry.ChildUpdate{
		Gender:            request.Gender,
		Allergies:         request.Allergies,
		MedicalConditions: request.MedicalConditions,
	}
	if request.Name != nil {
		name := strings.TrimSpace(*request.Name)
		if name == "" {
			return registry.Child{}, ErrNameRequired
		}
		update.Name = &name
	}
	if request.Gender != nil {
		if err := validateGender(*request.Gender); err != nil {
			return registry.Child{}, err
		}
	}
	if request.BirthDate != nil {
		birthDate, err := shared.ParseDate(*request.BirthDate)
		if err != nil {
			return registry.Child{}, err
		}
		formatted := birthDate.Format(shared.DateLayout)
		age := shared.AgeAt(birthDate, c.Clock.Now())
		update.BirthDate, update.Age = &formatted, &age
	}

	ws, err := c.workspace(ctx)
	if err != nil {
		return registry.Child{}, err
	}
	current, err := ws.Children.Get(childId)
	if err != nil {
		return registry.Child{}, errors.Wrap(err, "failed to update child")
	}

	var replaced, uploaded []string
	images := []struct {
		requested *string
		current   string
		target    **string
	}{
		{request.Photo, current.Photo, &update.Photo},
		{request.InsuranceCardImage, current.InsuranceCardImage, &update.InsuranceCardImage},
		{request.RecipientCertImage, current.RecipientCertImage, &update.RecipientCertImage},
	}
	for _, image := range images {
		if image.requested == nil {
			continue
		}
		stored, isNew, err := c.storeImage(ctx, *image.requested)
		if err != nil {
			c.deleteImages(ctx, uploaded...)
			return registry.Child{}, err
		}
		if isNew {
			uploaded = append(uploaded, stored)
		}
		if stored != image.current {
			replaced = append(replaced, image.current)
		}
		*image.target = &stored
	}

	child, err := ws.Children.Update(ctx, childId, update)
	if err != nil {
		c.deleteImages(ctx, uploaded...)
		return registry.Child{}, errors.Wrap(err, "failed to update child")
	}
	c.deleteImages(ctx, replaced...)
	return c.withImageUris(ctx, child), nil
}

func (c *ChildService) DeleteChild(ctx context.Context, childId string) error {
	ws, err := c.workspace(ctx)
	if err != nil {
		return err
	}
	child, err := ws.Children.Get(childId)
	if err != nil {
		return errors.Wrap(err, "failed to delete child")
	}
	if err := ws.Children.Delete(ctx, childId); err != nil {
		return errors.Wrap(err, "failed to delete child")
	}
	c.deleteImages(ctx, child.Photo, child.InsuranceCardImage, child.RecipientCertImage)
	return nil
}

func (c *ChildService) SelectChild(ctx context.Context, childId string) error {
	ws, err := c.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Children.Select(ctx, childId); err != nil {
		return errors.Wrap(err, "failed to select child")
	}
	return nil
}

func (c *ChildService) UnselectChild(ctx context.Context, childId string) error {
	ws, err := c.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Children.Unselect(ctx, childId); err != nil {
		return errors.Wrap(err, "failed to unselect child")
	}
	return nil
}

func (c *ChildService) SelectedChild(ctx context.Context) (registry.Child, bool, error) {
	ws, err := c.workspace(ctx)
	if err != nil {
		return registry.Child{}, false, err
	}
	child, ok := ws.Children.Selected()
	if !ok {
		return registry.Child{}, false, nil
	}
	return c.withImageUris(ctx, child), true, nil
}

func (c *ChildService) workspace(ctx context.Context) (*registry.Workspace, error) {
	ws, err := c.Workspaces.Open(ctx, claims.GetUserId(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workspace")
	}
	return ws, nil
}

// storeImage uploads data URIs under the parent folder and reports whether it did.
// Other values must be an external URL or an image the parent already stored.
func (c *ChildService) storeImage(ctx context.Context, image string) (string, bool, error) {
	switch {
	case image == "", isExternal(image):
		return image, false, nil
	case !storage.IsDataUri(image):
		if !ownsImage(ctx, image) {
			return "", false, ErrForeignImage
		}
		return image, false, nil
	}
	name, err := c.Storage.Store(ctx, image, imageFolder(ctx))
	if err != nil {
		return "", false, errors.Wrap(err, "failed to store image")
	}
	return name, name != "", nil
}

func (c *ChildService) withImageUris(ctx context.Context, child registry.Child) registry.Child {
	child.Photo = c.imageUri(ctx, child.Photo)
	child.InsuranceCardImage = c.imageUri(ctx, child.InsuranceCardImage)
	child.RecipientCertImage = c.imageUri(ctx, child.RecipientCertImage)
	return child
}

func (c *ChildService) imageUri(ctx context.Context, image string) string {
	if image == "" || isExternal(image) {
		return image
	}
	if !ownsImage(ctx, image) {
		c.Logger.Warn(ctx, "refusing to sign a foreign image", "image", image)
		return ""
	}
	uri, err := c.Storage.Get(ctx, image)
	if err != nil {
		c.Logger.Warn(ctx, "failed to generate image uri", "image", image, "err", err)
		return image
	}
	return uri
}

func (c *ChildService) deleteImages(ctx context.Context, images ...string) {
	for _, image := range images {
		if image == "" || isExternal(image) || !ownsImage(ctx, image) {
			continue
		}
		if err := c.Storage.Delete(ctx, image); err != nil {
			c.Logger.Warn(ctx, "failed to delete child image", "image", image, "err", err)
		}
	}
}

func imageFolder(ctx context.Context) string {
	return "parents/" + claims.GetUserId(ctx) + "/children"
}

// ownsImage tells whether a stored image name lives in the caller's folder.
func ownsImage(ctx context.Context, image string) bool {
	if claims.GetUserId(ctx) == "" || strings.Contains(image, "..") {
		return false
	}
	return strings.HasPrefix(image, imageFolder(ctx)+"/")
}

func isExternal(image string) bool {
	return strings.HasPrefix(image, "https://") || strings.HasPrefix(image, "http://")
}

func validateGender(gender string) error {
	switch gender {
	case "", registry.GenderMale, registry.GenderFemale, registry.GenderOther:
		return nil
	}
	return ErrInvalidGender
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
