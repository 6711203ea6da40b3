// Package upnp implements the UPnP MediaServer control surface: device and
// service descriptions, the ContentDirectory Browse action with DIDL-Lite
// results, the ConnectionManager stub, and the SSDP discovery responder.
package upnp

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eems/eems/log"
	"github.com/eems/eems/model"
	"github.com/eems/eems/persistence"
)

const (
	deviceType            = "urn:schemas-upnp-org:device:MediaServer:1"
	contentDirectoryType  = "urn:schemas-upnp-org:service:ContentDirectory:1"
	connectionManagerType = "urn:schemas-upnp-org:service:ConnectionManager:1"
)

// Service handles the /upnp subtree.
type Service struct {
	ds         *persistence.Store
	serverName string
	uuid       string
	baseURL    string
}

// New creates the UPnP service. baseURL is the advertised origin, e.g.
// "http://host:8200".
func New(ds *persistence.Store, serverName, uuid, baseURL string) *Service {
	return &Service{ds: ds, serverName: serverName, uuid: uuid, baseURL: baseURL}
}

// Routes returns the router mounted at /upnp.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/device", s.handleDeviceDescription)
	r.Get("/cds.xml", s.handleContentDirectorySCPD)
	r.Get("/cm.xml", s.handleConnectionManagerSCPD)

	// The control endpoints validate the method themselves so that non-POST
	// requests get 400 rather than the router's 405.
	r.HandleFunc("/cds", s.handleContentDirectoryControl)
	r.HandleFunc("/cm", s.handleConnectionManagerControl)

	return r
}

func (s *Service) handleContentDirectoryControl(w http.ResponseWriter, r *http.Request) {
	soapReq, err := parseSOAPRequest(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	log.Debug(r.Context(), "ContentDirectory request", "action", soapReq.Action)

	switch soapReq.Action {
	case "Browse":
		resp, err := s.handleBrowse(soapReq.Payload)
		if err != nil {
			writeActionError(w, soapReq.Action, err)
			return
		}
		writeSOAPResponse(w, resp)
	default:
		log.Warn(r.Context(), "Unknown ContentDirectory action", "action", soapReq.Action)
		writeSOAPFault(w, upnpErrorInvalidAction, "unknown action: "+soapReq.Action)
	}
}

// ConnectionManager carries no actions in this server; every call is rejected
// with a SOAP fault after the transport contract has been validated.
func (s *Service) handleConnectionManagerControl(w http.ResponseWriter, r *http.Request) {
	soapReq, err := parseSOAPRequest(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	log.Debug(r.Context(), "Rejecting ConnectionManager action", "action", soapReq.Action)
	writeSOAPFault(w, upnpErrorInvalidAction, "unsupported action: "+soapReq.Action)
}

func writeRequestError(w http.ResponseWriter, err error) {
	var herr *httpError
	if errors.As(err, &herr) {
		http.Error(w, herr.msg, herr.status)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeActionError(w http.ResponseWriter, action string, err error) {
	var uerr *upnpError
	switch {
	case errors.As(err, &uerr):
		writeSOAPFault(w, uerr.code, uerr.msg)
	case errors.Is(err, model.ErrNotFound):
		writeSOAPFault(w, upnpErrorNoSuchObject, err.Error())
	case errors.Is(err, model.ErrCorrupt):
		log.Error("Library corruption surfaced by action", err, "action", action)
		http.Error(w, "library corrupt", http.StatusInternalServerError)
	default:
		log.Error("Action failed", err, "action", action)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
