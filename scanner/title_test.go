package scanner

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("normalizeTitle", func() {
	DescribeTable("title and year extraction",
		func(stem, wantTitle string, wantYear int) {
			title, year := normalizeTitle(stem)
			Expect(title).To(Equal(wantTitle))
			Expect(year).To(Equal(wantYear))
		},
		Entry("plain name", "alpha", "alpha", 0),
		Entry("dots become spaces", "My.Movie", "My Movie", 0),
		Entry("underscores become spaces", "My_Movie", "My Movie", 0),
		Entry("parenthesized year", "My.Movie.(2001)", "My Movie", 2001),
		Entry("bare year", "My Movie 2001", "My Movie", 2001),
		Entry("year plus release noise", "My.Movie.2001.1080p.BluRay", "My Movie", 2001),
		Entry("year only", "2001", "", 2001),
		Entry("no word after separator keeps separator", "Movie. (2010)", "Movie", 2010),
		Entry("three-digit number is not a year", "Movie 999", "Movie 999", 0),
	)
})
