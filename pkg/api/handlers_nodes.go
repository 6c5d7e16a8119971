package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"nodechat/pkg/auth"
	"nodechat/pkg/chat"
	"nodechat/pkg/logger"
	"nodechat/pkg/models"
)

// memberView is the wire form of a directory entry; the address is the map
// key in node state, so listings add it back explicitly.
type memberView struct {
	Address      string      `json:"address"`
	Name         string      `json:"name"`
	Role         models.Role `json:"role"`
	JoinedAt     int64       `json:"joinedAt"`
	Reputation   float64     `json:"reputation"`
	Muted        bool        `json:"muted,omitempty"`
	LastActiveAt int64       `json:"lastActiveAt,omitempty"`
}

func toMemberView(p models.Participant) memberView {
	return memberView{
		Address:      p.Address,
		Name:         p.Name,
		Role:         p.Role,
		JoinedAt:     p.JoinedAt,
		Reputation:   p.Reputation,
		Muted:        p.Muted,
		LastActiveAt: p.LastActiveAt,
	}
}

func requester(r *http.Request) string {
	return auth.AddressFromContext(r.Context())
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	addr := requester(r)
	if addr == "" {
		writeErr(w, fmt.Errorf("node creation requires an identity: %w", chat.ErrPermissionDenied))
		return
	}
	var body struct {
		ItemID        string             `json:"itemId"`
		ItemType      string             `json:"itemType"`
		ItemData      map[string]any     `json:"itemData"`
		Name          string             `json:"name"`
		Description   string             `json:"description"`
		CreatorName   string             `json:"creatorName"`
		ChatType      string             `json:"chatType"`
		SecurityLevel string             `json:"securityLevel"`
		Settings      *models.Settings   `json:"settings"`
		Governance    *models.Governance `json:"governance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	st, err := s.reg.CreateNode(chat.CreateParams{
		ItemID:         body.ItemID,
		ItemType:       body.ItemType,
		ItemData:       body.ItemData,
		CreatorAddress: addr,
		CreatorName:    body.CreatorName,
		Name:           body.Name,
		Description:    body.Description,
		ChatType:       body.ChatType,
		SecurityLevel:  body.SecurityLevel,
		Settings:       body.Settings,
		Governance:     body.Governance,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	nodesCreatedTotal.Inc()
	logger.Info("api_node_created", "node", st.ID, "creator", addr)
	_ = JSONWrite(w, http.StatusCreated, st)
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	f := chat.Filter{
		ItemType: r.URL.Query().Get("itemType"),
		ChatType: r.URL.Query().Get("chatType"),
	}
	nodes := s.reg.AllNodes(f, requester(r))
	_ = JSONWrite(w, http.StatusOK, struct {
		Nodes []models.NodeState `json:"nodes"`
	}{Nodes: nodes})
}

func (s *Server) itemNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.reg.NodesForItem(mux.Vars(r)["itemID"], requester(r))
	_ = JSONWrite(w, http.StatusOK, struct {
		Nodes []models.NodeState `json:"nodes"`
	}{Nodes: nodes})
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.GetNode(mux.Vars(r)["id"], requester(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, st)
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	st, err := s.reg.UpdateNodeMeta(mux.Vars(r)["id"], requester(r), body.Name, body.Description)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, st)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.reg.DeleteNode(id, requester(r)); err != nil {
		writeErr(w, err)
		return
	}
	nodesDeletedTotal.Inc()
	_ = JSONWrite(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) join(w http.ResponseWriter, r *http.Request) {
	addr := requester(r)
	var body struct {
		Name string `json:"name"`
	}
	// body is optional; joining without a display name is fine
	_ = json.NewDecoder(r.Body).Decode(&body)
	res, err := s.reg.Join(mux.Vars(r)["id"], addr, body.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	status := http.StatusOK
	if res.Joined {
		status = http.StatusCreated
	}
	_ = JSONWrite(w, status, struct {
		Joined      bool       `json:"joined"`
		Participant memberView `json:"participant"`
	}{Joined: res.Joined, Participant: toMemberView(res.Participant)})
}

func (s *Server) members(w http.ResponseWriter, r *http.Request) {
	ps, err := s.reg.Members(mux.Vars(r)["id"], requester(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]memberView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toMemberView(p))
	}
	_ = JSONWrite(w, http.StatusOK, struct {
		Members []memberView `json:"members"`
	}{Members: out})
}

// removeMember handles both self-leave and moderator kick, depending on
// whether the target address is the requester.
func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, target := vars["id"], vars["address"]
	addr := requester(r)
	var err error
	if target == addr {
		err = s.reg.Leave(id, addr)
	} else {
		err = s.reg.Kick(id, addr, target)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, map[string]string{"removed": target})
}

func (s *Server) promote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.reg.Promote(vars["id"], requester(r), vars["address"]); err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, map[string]string{"promoted": vars["address"]})
}

func (s *Server) mute(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Muted bool `json:"muted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.reg.Mute(vars["id"], requester(r), vars["address"], body.Muted); err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, map[string]bool{"muted": body.Muted})
}

func (s *Server) reputation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Reputation float64 `json:"reputation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.reg.SetReputation(vars["id"], vars["address"], body.Reputation); err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, map[string]float64{"reputation": body.Reputation})
}
