package models_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/ankix/pkg/models"
)

var _ = Describe("Flashcard Models", func() {
	Context("CardType", func() {
		DescribeTable("ParseCardType",
			func(input string, expected models.CardType, shouldFail bool) {
				cardType, err := models.ParseCardType(input)
				if shouldFail {
					Expect(err).To(HaveOccurred())
					return
				}
				Expect(err).NotTo(HaveOccurred())
				Expect(cardType).To(Equal(expected))
			},
			Entry("basic", "basic", models.CardTypeBasic, false),
			Entry("cloze", "cloze", models.CardTypeCloze, false),
			Entry("mixed case with spaces", " Cloze ", models.CardTypeCloze, false),
			Entry("unknown", "reversed", models.CardType(""), true),
			Entry("empty", "", models.CardType(""), true),
		)
	})

	Context("Flashcard", func() {
		It("should decode cards without a back side", func() {
			var pages []models.FlashcardPage
			body := `[{"flashcards":[{"front":"The {{c1::sun}} is a star","type":"cloze"}]},
				{"flashcards":[{"front":"Q","back":"A","type":"basic"},{"front":"Q2","back":"A2","type":"basic"}]}]`

			Expect(json.Unmarshal([]byte(body), &pages)).To(Succeed())
			Expect(pages).To(HaveLen(2))
			Expect(pages[0].Flashcards[0].Back).To(BeEmpty())
			Expect(pages[0].Flashcards[0].Type).To(Equal(models.CardTypeCloze))
			Expect(models.CountFlashcards(pages)).To(Equal(3))
		})

		It("should omit an empty back side when encoding", func() {
			data, err := json.Marshal(models.Flashcard{Front: "f", Type: models.CardTypeCloze})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(`{"front":"f","type":"cloze"}`))
		})
	})

	Context("ClonePages", func() {
		It("should not share card slices with the source", func() {
			source := []models.FlashcardPage{
				{Flashcards: []models.Flashcard{{Front: "a", Back: "b", Type: models.CardTypeBasic}}},
			}
			clone := models.ClonePages(source)
			clone[0].Flashcards[0].Front = "changed"

			Expect(source[0].Flashcards[0].Front).To(Equal("a"))
		})

		It("should keep nil as nil", func() {
			Expect(models.ClonePages(nil)).To(BeNil())
		})
	})
})
