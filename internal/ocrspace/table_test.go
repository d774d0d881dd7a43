package ocrspace

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// word builds a single-word line; enough for geometry-only grouping tests.
func word(text string, left, top, width, height int) Line {
	return Line{
		Text:  text,
		Words: []Word{{Text: text, Left: left, Top: top, Width: width, Height: height}},
	}
}

var _ = Describe("Tableize", func() {
	var (
		overlay Overlay
		rows    [][]Line
	)

	JustBeforeEach(func() {
		rows = Tableize(overlay)
	})

	When("lines arrive out of visual order", func() {
		BeforeEach(func() {
			overlay = Overlay{Lines: []Line{
				word("DATA", 200, 100, 60, 20),
				word("VENDOR", 10, 10, 120, 20),
				word("TOTALE", 10, 100, 100, 20),
				word("12,50", 300, 105, 60, 18),
			}}
		})

		It("groups vertically overlapping lines into one row", func() {
			Expect(rows).To(HaveLen(2))
			Expect(rows[0]).To(HaveLen(1))
			Expect(rows[1]).To(HaveLen(3))
		})

		It("orders rows top to bottom", func() {
			Expect(rows[0][0].Text).To(Equal("VENDOR"))
		})

		It("sorts every row left to right, including the trailing one", func() {
			texts := make([]string, 0, len(rows[1]))
			for _, line := range rows[1] {
				texts = append(texts, line.Text)
			}
			Expect(texts).To(Equal([]string{"TOTALE", "DATA", "12,50"}))
		})

		It("preserves the total word count", func() {
			count := 0
			for _, row := range rows {
				for _, line := range row {
					count += len(line.Words)
				}
			}
			Expect(count).To(Equal(4))
		})

		It("keeps left bounds non-decreasing within each row", func() {
			for _, row := range rows {
				for i := 1; i < len(row); i++ {
					Expect(row[i].LeftBound()).To(BeNumerically(">=", row[i-1].LeftBound()))
				}
			}
		})
	})

	When("a middle row closes before a later one opens", func() {
		BeforeEach(func() {
			overlay = Overlay{Lines: []Line{
				word("right", 200, 10, 50, 20),
				word("left", 10, 12, 50, 20),
				word("footer", 10, 100, 80, 20),
			}}
		})

		It("sorts the closed row by column", func() {
			Expect(rows).To(HaveLen(2))
			Expect(rows[0][0].Text).To(Equal("left"))
			Expect(rows[0][1].Text).To(Equal("right"))
		})
	})

	When("the overlay contains a line without words", func() {
		BeforeEach(func() {
			overlay = Overlay{Lines: []Line{
				word("real", 10, 10, 50, 20),
				{Text: "ghost"},
			}}
		})

		It("excludes it instead of failing", func() {
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]).To(HaveLen(1))
			Expect(rows[0][0].Text).To(Equal("real"))
		})
	})

	When("the overlay is empty", func() {
		BeforeEach(func() {
			overlay = Overlay{}
		})

		It("produces no rows", func() {
			Expect(rows).To(BeEmpty())
		})
	})
})

var _ = Describe("LinesByUpperBound", func() {
	It("keeps the provider order for equal upper bounds", func() {
		overlay := Overlay{Lines: []Line{
			word("first", 100, 50, 10, 10),
			word("second", 10, 50, 10, 10),
			word("above", 10, 5, 10, 10),
		}}
		sorted := overlay.LinesByUpperBound()
		Expect(sorted).To(HaveLen(3))
		Expect(sorted[0].Text).To(Equal("above"))
		Expect(sorted[1].Text).To(Equal("first"))
		Expect(sorted[2].Text).To(Equal("second"))
	})

	It("does not mutate the overlay", func() {
		overlay := Overlay{Lines: []Line{
			word("b", 0, 50, 10, 10),
			word("a", 0, 5, 10, 10),
		}}
		overlay.LinesByUpperBound()
		Expect(overlay.Lines[0].Text).To(Equal("b"))
	})
})

var _ = Describe("RenderTable", func() {
	It("joins columns with pipes and rows with newlines", func() {
		rows := [][]Line{
			{word("VENDOR", 10, 10, 50, 20)},
			{word("TOTALE", 10, 100, 50, 20), word("12,50", 300, 100, 50, 20)},
		}
		Expect(RenderTable(rows)).To(Equal("VENDOR\nTOTALE|12,50"))
	})

	It("renders nothing for no rows", func() {
		Expect(RenderTable(nil)).To(Equal(""))
	})
})
