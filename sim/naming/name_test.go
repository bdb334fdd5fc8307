package naming

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Name", func() {
	It("should parse name", func() {
		name, err := ParseName("Hospital[0].Ward[3]")

		Expect(err).NotTo(HaveOccurred())
		Expect(name.Tokens[0].ElemName).To(Equal("Hospital"))
		Expect(name.Tokens[0].Index).To(Equal([]int{0}))
		Expect(name.Tokens[1].ElemName).To(Equal("Ward"))
		Expect(name.Tokens[1].Index).To(Equal([]int{3}))
	})

	It("should parse multi-dimensional index", func() {
		name, err := ParseName("Ward[0][1]")

		Expect(err).NotTo(HaveOccurred())
		Expect(name.Tokens[0].Index).To(Equal([]int{0, 1}))
	})

	DescribeTable("should reject invalid names",
		func(name string) {
			Expect(Validate(name)).To(MatchError(ErrInvalidName))
		},
		Entry("empty", ""),
		Entry("underscore", "Ward_0"),
		Entry("dash", "Ward-0"),
		Entry("space", "North Ward"),
		Entry("lower case", "ward"),
		Entry("unclosed bracket", "Ward[0"),
		Entry("unopened bracket", "Ward0]"),
		Entry("nested bracket", "Ward[[0]]"),
		Entry("text index", "Ward[a]"),
		Entry("text after index", "Ward[0]X"),
		Entry("empty element", "Hospital..Ward"),
		Entry("trailing dot", "Hospital.Ward."),
	)

	It("should accept valid names", func() {
		Expect(Validate("Ward")).To(Succeed())
		Expect(Validate("Hospital.Ward[2].Beds")).To(Succeed())
	})

	It("should build name", func() {
		Expect(BuildName("", "Ward")).To(Equal("Ward"))
		Expect(BuildName("Ward", "Beds")).To(Equal("Ward.Beds"))
	})

	It("should build name with index", func() {
		Expect(BuildNameWithIndex("", "Ward", 0)).To(Equal("Ward[0]"))
		Expect(BuildNameWithIndex("Hospital", "Ward", 1)).
			To(Equal("Hospital.Ward[1]"))
	})

	It("should give objects a name", func() {
		var n Named = MakeNamedBase("Ward")

		Expect(n.Name()).To(Equal("Ward"))
	})
})
