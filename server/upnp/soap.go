package upnp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/eems/eems/log"
)

// soapEnvelope captures the request body; the action element is kept as raw
// inner XML and decoded per action.
type soapEnvelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    soapBody
}

type soapBody struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
	Content []byte   `xml:",innerxml"`
}

// UPnP error codes surfaced as SOAP faults.
const (
	upnpErrorInvalidAction   = 401
	upnpErrorInvalidArgs     = 402
	upnpErrorActionFailed    = 501
	upnpErrorArgumentInvalid = 600
	upnpErrorArgumentRange   = 601
	upnpErrorNoSuchObject    = 701
)

// upnpError is an action failure reported as a SOAP fault with a UPnPError
// detail.
type upnpError struct {
	code int
	msg  string
}

func (e *upnpError) Error() string {
	return fmt.Sprintf("upnp error %d: %s", e.code, e.msg)
}

// httpError aborts request handling with a plain HTTP status before any
// action dispatch happened.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

// soapRequest is a parsed SOAP action call.
type soapRequest struct {
	Service string
	Action  string
	// Payload is the SOAP Body inner XML; its first element is the action.
	Payload []byte
}

// SOAPACTION carries `"<service>#<action>"`, quotes included.
var soapActionRe = regexp.MustCompile(`^"([^#"]+)#([^#"]+)"$`)

// parseSOAPRequest validates the transport-level SOAP contract: POST method,
// XML content type, well-formed SOAPACTION header, and an action element
// whose local name matches the header.
func parseSOAPRequest(r *http.Request) (*soapRequest, error) {
	if r.Method != http.MethodPost {
		return nil, &httpError{http.StatusBadRequest, "unsupported HTTP method"}
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "text/xml") {
		return nil, &httpError{http.StatusUnsupportedMediaType, "must be an XML"}
	}

	m := soapActionRe.FindStringSubmatch(r.Header.Get("SOAPACTION"))
	if m == nil {
		return nil, &httpError{http.StatusBadRequest, "invalid SOAPACTION header"}
	}
	req := &soapRequest{Service: m[1], Action: m[2]}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &httpError{http.StatusBadRequest, "reading request body"}
	}
	var envelope soapEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, &httpError{http.StatusBadRequest, "invalid SOAP envelope"}
	}
	req.Payload = envelope.Body.Content

	name, err := firstElementName(req.Payload)
	if err != nil || name != req.Action {
		return nil, &httpError{http.StatusBadRequest, "invalid action element"}
	}
	return req, nil
}

// firstElementName returns the local name of the first element in fragment.
func firstElementName(fragment []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(fragment))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// writeSOAPResponse wraps an action response in a SOAP envelope.
func writeSOAPResponse(w http.ResponseWriter, result interface{}) {
	body, err := xml.Marshal(result)
	if err != nil {
		log.Error("Failed to marshal SOAP response", err)
		writeSOAPFault(w, upnpErrorActionFailed, "failed to marshal response")
		return
	}

	envelope := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    %s
  </s:Body>
</s:Envelope>`, string(body))

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.Header().Set("Ext", "")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(envelope))
}

// writeSOAPFault emits the UPnP fault envelope on HTTP 500.
func writeSOAPFault(w http.ResponseWriter, code int, message string) {
	fault := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <s:Fault>
      <faultcode>s:Client</faultcode>
      <faultstring>UPnPError</faultstring>
      <detail>
        <UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
          <errorCode>%d</errorCode>
          <errorDescription>%s</errorDescription>
        </UPnPError>
      </detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`, code, xmlEscape(message))

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(fault))
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
