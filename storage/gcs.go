package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

const defaultUrlTtl = 15 * time.Minute

var ErrIncompleteServiceAccount = errors.New("bucket service account needs client_email and private_key to sign urls")

type Options struct {
	CredentialsFile string
	BucketName      string
	UrlTtl          time.Duration
}

// GoogleStorage keeps children documents in a private bucket and hands out V4 signed URLs.
type GoogleStorage struct {
	bucket *storage.BucketHandle
	ttl    time.Duration
	signer signer

	StringGenerator interface {
		GenerateUuid() string
	} `inject:""`
}

type signer struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

func New(ctx context.Context, options Options) (*GoogleStorage, error) {
	credentials, err := os.ReadFile(options.CredentialsFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read bucket service account")
	}
	gs := &GoogleStorage{ttl: options.UrlTtl}
	if gs.signer, err = parseSigner(credentials); err != nil {
		return nil, err
	}
	if gs.ttl <= 0 {
		gs.ttl = defaultUrlTtl
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credentials))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage client")
	}
	gs.bucket = client.Bucket(options.BucketName)
	return gs, nil
}

// parseSigner reads the fields needed to sign URLs from a service account key.
func parseSigner(credentials []byte) (signer, error) {
	var sa signer
	if err := json.Unmarshal(credentials, &sa); err != nil {
		return signer{}, errors.Wrap(err, "failed to parse bucket service account")
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return signer{}, ErrIncompleteServiceAccount
	}
	return sa, nil
}

func (s *GoogleStorage) Store(ctx context.Context, b64image string, folder string) (string, error) {
	if b64image == "" {
		return "", nil
	}
	decoded, err := decode64EncodedPhoto(b64image)
	if err != nil {
		return "", err
	}

	fileName := objectName(folder, s.StringGenerator.GenerateUuid())
	w := s.bucket.Object(fileName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = jpegMimetype
	w.CacheControl = "private, max-age=0"

	if _, err := io.Copy(w, bytes.NewReader(decoded)); err != nil {
		w.Close()
		return "", errors.Wrap(err, "failed to upload image")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "failed to upload image")
	}
	return fileName, nil
}

// Get signs a short lived download URL, the bucket itself is never public.
func (s *GoogleStorage) Get(ctx context.Context, fileName string) (string, error) {
	if fileName == "" {
		return "", nil
	}
	url, err := s.bucket.SignedURL(fileName, &storage.SignedURLOptions{
		GoogleAccessID: s.signer.ClientEmail,
		PrivateKey:     []byte(s.signer.PrivateKey),
		Method:         http.MethodGet,
		Expires:        time.Now().Add(s.ttl),
		Scheme:         storage.SigningSchemeV4,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to sign url of %s", fileName)
	}
	return url, nil
}

func (s *GoogleStorage) Delete(ctx context.Context, fileName string) error {
	if fileName == "" {
		return nil
	}
	err := s.bucket.Object(fileName).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}
