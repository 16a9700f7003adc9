package collection_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/ankix/internal/collection"
)

var _ = Describe("Pager", func() {
	DescribeTable("GroupCount",
		func(pages, groups int) {
			Expect(collection.GroupCount(pages)).To(Equal(groups))
		},
		Entry("empty", 0, 0),
		Entry("one page", 1, 1),
		Entry("exactly one group", 3, 1),
		Entry("one into the second group", 4, 2),
		Entry("seven pages", 7, 3),
	)

	Context("with seven pages", func() {
		var coll *collection.Collection

		BeforeEach(func() {
			coll = collection.New()
			coll.Replace(samplePages(7, 1))
		})

		It("should start on the first group with previous disabled", func() {
			view := coll.View()
			Expect(view.Group).To(Equal(0))
			Expect(view.GroupCount).To(Equal(3))
			Expect(view.HasPrev).To(BeFalse())
			Expect(view.HasNext).To(BeTrue())
			Expect(view.PageIndices).To(Equal([]int{0, 1, 2}))
			Expect(view.Pages).To(HaveLen(3))
			Expect(view.Current.Flashcards[0].Front).To(Equal("q0-0"))
		})

		It("should clamp at the last group", func() {
			coll.NextGroup()
			view := coll.NextGroup()
			Expect(view.Group).To(Equal(2))
			Expect(view.HasNext).To(BeFalse())
			Expect(view.PageIndices).To(Equal([]int{6}))

			view = coll.NextGroup()
			Expect(view.Group).To(Equal(2))
			Expect(view.Page).To(Equal(6))
		})

		It("should clamp at the first group", func() {
			view := coll.PrevGroup()
			Expect(view.Group).To(Equal(0))
			Expect(view.HasPrev).To(BeFalse())
		})

		It("should follow a selected page into its group", func() {
			view := coll.SelectPage(4)
			Expect(view.Group).To(Equal(1))
			Expect(view.Page).To(Equal(4))
			Expect(view.HasPrev).To(BeTrue())
			Expect(view.HasNext).To(BeTrue())
			Expect(view.Current.Flashcards[0].Front).To(Equal("q4-0"))

		})

		It("should clamp a selected page to the collection bounds", func() {
			view := coll.SelectPage(7)
			Expect(view.Page).To(Equal(6))
			Expect(view.Group).To(Equal(2))

			view = coll.SelectPage(-3)
			Expect(view.Page).To(Equal(0))
			Expect(view.Group).To(Equal(0))
		})

		It("should reset to the first group on replace", func() {
			coll.NextGroup()
			coll.Replace(samplePages(2, 1))
			view := coll.View()
			Expect(view.Group).To(Equal(0))
			Expect(view.HasNext).To(BeFalse())
		})
	})

	It("should disable both directions when empty", func() {
		view := collection.New().View()
		Expect(view.HasPrev).To(BeFalse())
		Expect(view.HasNext).To(BeFalse())
		Expect(view.Current).To(BeNil())
		Expect(view.Pages).To(BeEmpty())
	})
})
