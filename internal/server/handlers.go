package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/projectdiscovery/gologger"
	sliceutil "github.com/projectdiscovery/utils/slice"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/projectdiscovery/wol-agent/pkg/macaddr"
	"github.com/projectdiscovery/wol-agent/pkg/neighbor"
	"github.com/projectdiscovery/wol-agent/pkg/store"
	"github.com/projectdiscovery/wol-agent/pkg/wol"
)

const maxBodySize = 1 << 16

var errNoTarget = errors.New("no wake target given")

func (s *Server) listMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := s.options.Inventory.List(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, machines)
}

type machineRequest struct {
	ID  string        `json:"id"`
	MAC *macaddr.Addr `json:"mac"`
}

func (s *Server) addMachine(w http.ResponseWriter, r *http.Request) {
	var req machineRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", store.ErrInvalid, err))
		return
	}
	if req.MAC == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: missing mac", store.ErrInvalid))
		return
	}

	m := store.Machine{ID: strings.TrimSpace(req.ID), MAC: *req.MAC}
	if err := s.options.Inventory.Add(r.Context(), m); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) deleteMachine(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	id := query.Get("id")
	if id == "" {
		id = query.Get("name")
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: missing id", store.ErrInvalid))
		return
	}

	if err := s.options.Inventory.Delete(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// wake broadcasts for every ?mac= given and the stored address of every ?id=.
func (s *Server) wake(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var targets []macaddr.Addr
	for _, raw := range query["mac"] {
		mac, err := macaddr.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		targets = append(targets, mac)
	}
	for _, id := range query["id"] {
		m, err := s.options.Inventory.Get(r.Context(), id)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		targets = append(targets, m.MAC)
	}
	if len(targets) == 0 {
		writeError(w, http.StatusBadRequest, errNoTarget)
		return
	}

	targets = sliceutil.Dedupe(targets)
	if err := s.options.Waker.WakeAll(r.Context(), targets); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]macaddr.Addr{"woken": targets})
}

func (s *Server) neighbors(w http.ResponseWriter, r *http.Request) {
	table, err := s.options.Neighbors.Read(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

type callerResponse struct {
	Address netip.Addr     `json:"address"`
	MACs    []macaddr.Addr `json:"macs"`
}

// neighborsForCaller resolves the requesting peer's own link-layer address.
func (s *Server) neighborsForCaller(w http.ResponseWriter, r *http.Request) {
	addrPort, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown remote address %q: %w", r.RemoteAddr, err))
		return
	}
	caller := addrPort.Addr().Unmap().WithZone("")

	table, err := s.options.Neighbors.Read(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, callerResponse{Address: caller, MACs: table.MACsFor(caller)})
}

type hostStatus struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	KernelArch      string `json:"kernel_arch"`
	Uptime          uint64 `json:"uptime"`
}

type statusResponse struct {
	Version string      `json:"version"`
	Uptime  int64       `json:"uptime"`
	Host    *hostStatus `json:"host,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version: s.options.Version,
		Uptime:  int64(time.Since(s.started).Seconds()),
	}

	info, err := host.InfoWithContext(r.Context())
	if err != nil {
		gologger.Warning().Msgf("could not read host info: %s", err)
	} else {
		resp.Host = &hostStatus{
			Hostname:        info.Hostname,
			OS:              info.OS,
			Platform:        info.Platform,
			PlatformVersion: info.PlatformVersion,
			KernelVersion:   info.KernelVersion,
			KernelArch:      info.KernelArch,
			Uptime:          info.Uptime,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, macaddr.ErrMalformed), errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrExists):
		return http.StatusConflict
	case errors.Is(err, neighbor.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, wol.ErrBroadcastFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		gologger.Warning().Msgf("could not write response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		gologger.Error().Msgf("%s", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
