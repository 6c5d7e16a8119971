package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"nodechat/pkg/chat"
	"nodechat/pkg/models"
)

const (
	defaultPageLimit    = 50
	defaultTypingWindow = 10 * time.Second
)

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content     string              `json:"content"`
		MessageType string              `json:"messageType"`
		Attachments []models.Attachment `json:"attachments"`
		ReplyTo     int64               `json:"replyTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	msg, err := s.reg.Send(mux.Vars(r)["id"], chat.SendParams{
		Sender:      requester(r),
		Content:     body.Content,
		MessageType: body.MessageType,
		Attachments: body.Attachments,
		ReplyTo:     body.ReplyTo,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	messagesTotal.Inc()
	_ = JSONWrite(w, http.StatusCreated, msg)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	page, err := s.reg.Messages(mux.Vars(r)["id"], requester(r), limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, page)
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	msgID, err := strconv.ParseInt(vars["msgID"], 10, 64)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	msg, err := s.reg.GetMessage(vars["id"], msgID, requester(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, msg)
}

func (s *Server) addReaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	msgID, err := strconv.ParseInt(vars["msgID"], 10, 64)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	var body struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	changed, err := s.reg.AddReaction(vars["id"], msgID, requester(r), body.Symbol)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, map[string]bool{"changed": changed})
}

func (s *Server) removeReaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	msgID, err := strconv.ParseInt(vars["msgID"], 10, 64)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	changed, err := s.reg.RemoveReaction(vars["id"], msgID, requester(r), vars["symbol"])
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, map[string]bool{"changed": changed})
}

func (s *Server) setTyping(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.SetTyping(mux.Vars(r)["id"], requester(r)); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearTyping(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.ClearTyping(mux.Vars(r)["id"], requester(r)); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) typingNow(w http.ResponseWriter, r *http.Request) {
	window := defaultTypingWindow
	if v := r.URL.Query().Get("window"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			window = d
		}
	}
	addrs, err := s.reg.TypingNow(mux.Vars(r)["id"], requester(r), window)
	if err != nil {
		writeErr(w, err)
		return
	}
	if addrs == nil {
		addrs = []string{}
	}
	_ = JSONWrite(w, http.StatusOK, struct {
		Typing []string `json:"typing"`
	}{Typing: addrs})
}

func (s *Server) nodeStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.Stats(mux.Vars(r)["id"], requester(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = JSONWrite(w, http.StatusOK, st)
}

func (s *Server) topHashtags(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			n = parsed
		}
	}
	tags, err := s.reg.TopHashtags(mux.Vars(r)["id"], requester(r), n)
	if err != nil {
		writeErr(w, err)
		return
	}
	if tags == nil {
		tags = []chat.HashtagCount{}
	}
	_ = JSONWrite(w, http.StatusOK, struct {
		Hashtags []chat.HashtagCount `json:"hashtags"`
	}{Hashtags: tags})
}
