package registry_test

import (
	"context"

	. "github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"
	"github.com/Vinubaba/TOUCH-API/store"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ChildStore", func() {

	var (
		ctx       = context.Background()
		workspace *Workspace
		children  *ChildStore
		taro      Child
		hanako    Child
	)

	BeforeEach(func() {
		var err error
		workspace, err = newManager(store.NewMemoryMirror(), &shared.AppConfig{}).Open(ctx, "parent-1")
		Expect(err).To(BeNil())
		children = workspace.Children

		taro, err = children.Add(ctx, Child{Name: "Taro", BirthDate: "2020-05-01", Age: 3, Gender: GenderMale, Allergies: []string{"eggs"}})
		Expect(err).To(BeNil())
		hanako, err = children.Add(ctx, Child{Name: "Hanako", BirthDate: "2021-07-12", Age: 2, Gender: GenderFemale})
		Expect(err).To(BeNil())
	})

	Describe("Add", func() {
		It("should assign distinct ids", func() {
			Expect(taro.Id).NotTo(BeEmpty())
			Expect(hanako.Id).NotTo(BeEmpty())
			Expect(taro.Id).NotTo(Equal(hanako.Id))
		})

		It("should keep insertion order", func() {
			list := children.List()
			Expect(list).To(HaveLen(2))
			Expect(list[0].Name).To(Equal("Taro"))
			Expect(list[1].Name).To(Equal("Hanako"))
		})

		It("should select the last added child", func() {
			selected, ok := children.Selected()
			Expect(ok).To(BeTrue())
			Expect(selected.Id).To(Equal(hanako.Id))
		})
	})

	Describe("Update", func() {
		It("should only change the given fields", func() {
			name := "Taro Yamada"
			updated, err := children.Update(ctx, taro.Id, ChildUpdate{Name: &name})
			Expect(err).To(BeNil())
			Expect(updated.Name).To(Equal("Taro Yamada"))
			Expect(updated.BirthDate).To(Equal("2020-05-01"))
			Expect(updated.Allergies).To(Equal([]string{"eggs"}))
			Expect(updated.UpdatedAt.After(taro.UpdatedAt)).To(BeTrue())

			stored, err := children.Get(taro.Id)
			Expect(err).To(BeNil())
			Expect(stored).To(Equal(updated))
		})

		It("should fail for an unknown id", func() {
			name := "ghost"
			_, err := children.Update(ctx, "unknown", ChildUpdate{Name: &name})
			Expect(err).To(Equal(ErrChildNotFound))
		})
	})

	Describe("Delete", func() {
		Context("when the selected child is deleted", func() {
			BeforeEach(func() {
				Expect(children.Delete(ctx, hanako.Id)).To(Succeed())
			})

			It("should select the first remaining child", func() {
				selected, ok := children.Selected()
				Expect(ok).To(BeTrue())
				Expect(selected.Id).To(Equal(taro.Id))
			})

			It("should clear the selection once no child remains", func() {
				Expect(children.Delete(ctx, taro.Id)).To(Succeed())
				_, ok := children.Selected()
				Expect(ok).To(BeFalse())
				Expect(children.List()).To(BeEmpty())
			})
		})

		Context("when another child is deleted", func() {
			It("should keep the selection", func() {
				Expect(children.Delete(ctx, taro.Id)).To(Succeed())
				Expect(children.SelectedId()).To(Equal(hanako.Id))
			})
		})

		It("should fail for an unknown id", func() {
			Expect(children.Delete(ctx, "unknown")).To(Equal(ErrChildNotFound))
		})
	})

	Describe("Selection", func() {
		It("should select an existing child", func() {
			Expect(children.Select(ctx, taro.Id)).To(Succeed())
			Expect(children.SelectedId()).To(Equal(taro.Id))
		})

		It("should refuse an unknown child", func() {
			Expect(children.Select(ctx, "unknown")).To(Equal(ErrChildNotFound))
			Expect(children.SelectedId()).To(Equal(hanako.Id))
		})

		It("should ignore unselect of a child that is not selected", func() {
			Expect(children.Unselect(ctx, taro.Id)).To(Succeed())
			Expect(children.SelectedId()).To(Equal(hanako.Id))
		})

		It("should clear the selection on unselect of the selected child", func() {
			Expect(children.Unselect(ctx, hanako.Id)).To(Succeed())
			_, ok := children.Selected()
			Expect(ok).To(BeFalse())
		})
	})
})
