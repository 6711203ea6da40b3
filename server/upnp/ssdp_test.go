package upnp

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func msearch(st, man string) []byte {
	return []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: " + man + "\r\n" +
		"MX: 2\r\n" +
		"ST: " + st + "\r\n" +
		"\r\n")
}

var _ = Describe("SSDPResponder", func() {
	var responder *SSDPResponder

	BeforeEach(func() {
		responder = NewSSDPResponder(testUUID, testBaseURL)
	})

	It("answers a root device search", func() {
		reply := responder.handleDatagram(msearch("upnp:rootdevice", `"ssdp:discover"`))
		Expect(reply).ToNot(BeNil())
		body := string(reply)
		Expect(strings.HasPrefix(body, "HTTP/1.1 200 OK\r\n")).To(BeTrue())
		Expect(body).To(ContainSubstring("Cache-Control: max-age=1800\r\n"))
		Expect(body).To(ContainSubstring("Location: " + testBaseURL + "/upnp/device\r\n"))
		Expect(body).To(ContainSubstring("ST: upnp:rootdevice\r\n"))
		Expect(body).To(ContainSubstring("USN: uuid:" + testUUID + "::upnp:rootdevice\r\n"))
		Expect(body).To(ContainSubstring("EXT:\r\n"))
		Expect(strings.HasSuffix(body, "\r\n\r\n")).To(BeTrue())
	})

	It("answers a MediaServer device search with the queried target", func() {
		reply := responder.handleDatagram(msearch(deviceType, `"ssdp:discover"`))
		Expect(reply).ToNot(BeNil())
		Expect(string(reply)).To(ContainSubstring("ST: " + deviceType + "\r\n"))
		Expect(string(reply)).To(ContainSubstring("USN: uuid:" + testUUID + "::" + deviceType + "\r\n"))
	})

	It("ignores other search targets", func() {
		Expect(responder.handleDatagram(msearch("ssdp:all", `"ssdp:discover"`))).To(BeNil())
		Expect(responder.handleDatagram(msearch("urn:schemas-upnp-org:device:MediaRenderer:1", `"ssdp:discover"`))).To(BeNil())
	})

	It("ignores datagrams without the discover MAN value", func() {
		Expect(responder.handleDatagram(msearch("upnp:rootdevice", "ssdp:discover"))).To(BeNil())
		Expect(responder.handleDatagram(msearch("upnp:rootdevice", `"something:else"`))).To(BeNil())
	})

	It("ignores NOTIFY and other methods", func() {
		notify := []byte("NOTIFY * HTTP/1.1\r\nHOST: 239.255.255.250:1900\r\n\r\n")
		Expect(responder.handleDatagram(notify)).To(BeNil())
	})

	It("ignores non-HTTP noise", func() {
		Expect(responder.handleDatagram([]byte("not a request"))).To(BeNil())
	})
})
