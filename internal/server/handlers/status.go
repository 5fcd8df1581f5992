package handlers

import (
	"net/http"

	"github.com/3leaps/eae-utils/pkg/model"
)

// StatusSource exposes the status document a service is publishing.
type StatusSource interface {
	Snapshot() model.Status
}

// StatusHandler serves the current status document.
func StatusHandler(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			WriteError(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable, "status helper not configured", nil)
			return
		}
		WriteJSON(w, http.StatusOK, src.Snapshot())
	}
}

// VersionInfo is served by VersionHandler.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func VersionHandler(info VersionInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, info)
	}
}
