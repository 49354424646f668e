package storage_test

import (
	"context"
	b64 "encoding/base64"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Vinubaba/TOUCH-API/shared"
	. "github.com/Vinubaba/TOUCH-API/shared/mocks"
	. "github.com/Vinubaba/TOUCH-API/storage"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalFilesystem", func() {

	var (
		storage             *LocalStorage
		mockStringGenerator *MockStringGenerator
		dir                 string
		ctx                 = context.Background()
		image               = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	)

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "touch-storage")
		Expect(err).To(BeNil())

		mockStringGenerator = &MockStringGenerator{}
		mockStringGenerator.On("GenerateUuid").Return("aze3215fe-513df")

		storage = &LocalStorage{
			StringGenerator: mockStringGenerator,
			Config:          &shared.AppConfig{LocalStoragePath: dir},
		}
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	Context("Store", func() {
		var (
			fileName      string
			returnedError error
			input         string
		)

		BeforeEach(func() {
			input = "data:image/jpeg;base64," + b64.StdEncoding.EncodeToString(image)
		})

		JustBeforeEach(func() {
			fileName, returnedError = storage.Store(ctx, input, "parents/p1/children")
		})

		It("should write the image in the folder", func() {
			Expect(returnedError).To(BeNil())
			Expect(fileName).To(Equal("parents/p1/children/aze3215fe-513df.jpg"))
			content, err := ioutil.ReadFile(filepath.Join(dir, "parents", "p1", "children", "aze3215fe-513df.jpg"))
			Expect(err).To(BeNil())
			Expect(content).To(Equal(image))
		})

		It("should serve it through a file uri and delete it", func() {
			uri, err := storage.Get(ctx, fileName)
			Expect(err).To(BeNil())
			parsed, err := url.Parse(uri)
			Expect(err).To(BeNil())
			Expect(parsed.Scheme).To(Equal("file"))

			Expect(storage.Delete(ctx, fileName)).To(Succeed())
			_, err = storage.Get(ctx, fileName)
			Expect(err).NotTo(BeNil())
			Expect(storage.Delete(ctx, fileName)).To(Succeed())
		})

		Context("when the image is not a jpeg data uri", func() {
			BeforeEach(func() {
				input = "data:image/png;base64," + b64.StdEncoding.EncodeToString(image)
			})

			It("should refuse it", func() {
				Expect(returnedError).To(Equal(ErrUnsupportedFileFormat))
			})
		})

		Context("when the image is empty", func() {
			BeforeEach(func() {
				input = ""
			})

			It("should store nothing", func() {
				Expect(returnedError).To(BeNil())
				Expect(fileName).To(BeEmpty())
			})
		})
	})

	It("should keep files inside the storage root", func() {
		uri, err := storage.Get(ctx, "../../etc/passwd")
		Expect(err).NotTo(BeNil())
		Expect(uri).To(BeEmpty())
	})
})
