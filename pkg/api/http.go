// Package api is the HTTP transport collaborator: it parses requests,
// resolves the verified requester address and maps core error kinds onto
// protocol statuses. All business rules stay in the chat core.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"nodechat/pkg/auth"
	"nodechat/pkg/chat"
	"nodechat/pkg/events"
	"nodechat/pkg/store"
)

// Server bundles the collaborators the handlers need.
type Server struct {
	reg     *chat.Registry
	st      *store.Store
	bus     *events.Bus
	version string
}

// New builds the HTTP handler. st and bus may be nil (tests without
// persistence); the admin stats surface then reports zeros.
func New(reg *chat.Registry, st *store.Store, bus *events.Bus, sec auth.SecConfig, version string) http.Handler {
	s := &Server{reg: reg, st: st, bus: bus, version: version}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/version", s.versionInfo).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/docs/").Handler(httpSwagger.WrapHandler)
	r.HandleFunc("/admin/stats", s.adminStats).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(auth.Middleware(sec))

	// registry scope
	v1.HandleFunc("/nodes", s.createNode).Methods(http.MethodPost)
	v1.HandleFunc("/nodes", s.listNodes).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}", s.getNode).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}", s.updateNode).Methods(http.MethodPatch)
	v1.HandleFunc("/nodes/{id}", s.deleteNode).Methods(http.MethodDelete)
	v1.HandleFunc("/items/{itemID}/nodes", s.itemNodes).Methods(http.MethodGet)

	// node scope: membership
	v1.HandleFunc("/nodes/{id}/members", s.join).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/{id}/members", s.members).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}/members/{address}", s.removeMember).Methods(http.MethodDelete)
	v1.HandleFunc("/nodes/{id}/members/{address}/promote", s.promote).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/{id}/members/{address}/mute", s.mute).Methods(http.MethodPut)
	v1.HandleFunc("/nodes/{id}/members/{address}/reputation", s.reputation).Methods(http.MethodPut)

	// node scope: messages
	v1.HandleFunc("/nodes/{id}/messages", s.sendMessage).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/{id}/messages", s.listMessages).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}/messages/{msgID}", s.getMessage).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}/messages/{msgID}/reactions", s.addReaction).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/{id}/messages/{msgID}/reactions/{symbol}", s.removeReaction).Methods(http.MethodDelete)

	// node scope: presence and statistics
	v1.HandleFunc("/nodes/{id}/typing", s.setTyping).Methods(http.MethodPut)
	v1.HandleFunc("/nodes/{id}/typing", s.clearTyping).Methods(http.MethodDelete)
	v1.HandleFunc("/nodes/{id}/typing", s.typingNow).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}/stats", s.nodeStats).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}/stats/hashtags", s.topHashtags).Methods(http.MethodGet)

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	_ = JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) versionInfo(w http.ResponseWriter, r *http.Request) {
	_ = JSONWrite(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	out := struct {
		Nodes         int    `json:"nodes"`
		DBBytes       uint64 `json:"dbBytes"`
		EventsDropped uint64 `json:"eventsDropped"`
	}{Nodes: s.reg.Len()}
	if s.st != nil {
		out.DBBytes = s.st.SizeBytes()
	}
	if s.bus != nil {
		out.EventsDropped = s.bus.Dropped()
	}
	_ = JSONWrite(w, http.StatusOK, out)
}
